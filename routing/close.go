package routing

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/katalvlaran/lvroute/engine"
)

// CloseModel finalizes the constraint program: path structure, vehicle
// coupling, arc cost elements and disjunction penalties. Construction
// methods called afterwards return contract errors. Solve and the
// assignment bridges close the model on first use, so calling this
// explicitly is only needed to read CostVar before solving.
func (m *Model) CloseModel() {
	if m.closed {
		log.Warning("Model already closed")
		return
	}
	m.close()
}

// quietClose closes on first internal use, without the repeat warning.
func (m *Model) quietClose() {
	if !m.closed {
		m.close()
	}
}

func (m *Model) close() {
	m.closed = true
	m.checkDepot()

	size := m.size
	m.solver.Post(engine.NewNoCycle(m.nexts))

	// Vehicle identity: pinned at both route ends, carried along every
	// path by a zero-transit cumul, and -1 exactly on inactive nodes.
	for i := 0; i < m.vehicles; i++ {
		m.rootBind(m.vehicleVars[m.starts[i]], int64(i))
		m.rootBind(m.vehicleVars[m.ends[i]], int64(i))
	}
	zero := m.solver.NewConst(0, "ZeroTransit")
	zeroTransits := make([]*engine.IntVar, size)
	for i := range zeroTransits {
		zeroTransits[i] = zero
	}
	m.solver.Post(engine.NewPathCumul(m.nexts, m.vehicleVars, zeroTransits))
	for i := 0; i < size; i++ {
		m.solver.Post(engine.NewIsDifferentCst(m.vehicleVars[i], -1, m.activeVars[i]))
	}
	if len(m.disjunctions) == 0 {
		m.addAllActive()
	}
	// A route may only close onto its own end.
	for i := 0; i < m.vehicles; i++ {
		for j := 0; j < m.vehicles; j++ {
			if i != j {
				m.rootRemove(m.nexts[m.starts[i]], m.ends[j])
			}
		}
	}

	var costElements []*engine.IntVar
	if m.vehicles > 0 {
		for i := 0; i < size; i++ {
			costElements = append(costElements, m.arcCostElement(i))
		}
	}
	for d := range m.disjunctions {
		if penalty := m.createDisjunction(d); penalty != nil {
			costElements = append(costElements, penalty)
		}
	}
	cost := m.newVar(0, costInfinity, "Cost")
	m.solver.Post(engine.NewSumEquals(costElements, cost))
	m.cost = cost
}

// newVar creates a solver variable, folding the (structurally
// impossible) range error into the model's root failure.
func (m *Model) newVar(min, max int64, name string) *engine.IntVar {
	v, err := m.solver.NewIntVar(min, max, name)
	if err != nil {
		m.fail(err)
		return m.solver.NewConst(min, name)
	}
	return v
}

// arcCostElement builds the gated cost of the arc leaving index i: the
// cost table entry selected by nexts[i] (and by the vehicle variable
// for heterogeneous fleets), zeroed while i is inactive.
func (m *Model) arcCostElement(i int) *engine.IntVar {
	from := int64(i)
	base := m.newVar(0, costInfinity, fmt.Sprintf("ArcCost%d", i))
	switch {
	case m.homogeneous && m.opts.LightPropagation:
		m.solver.Post(engine.NewLightElement(base, m.nexts[i], func(next int64) int64 {
			return m.homogeneousCost(from, next)
		}))
	case m.homogeneous:
		m.solver.Post(engine.NewElement(base, m.nexts[i], func(next int64) int64 {
			return m.homogeneousCost(from, next)
		}))
	case m.opts.LightPropagation:
		m.solver.Post(engine.NewLightElement2(base, m.nexts[i], m.vehicleVars[i], func(next, vehicle int64) int64 {
			return m.ArcCost(from, next, vehicle)
		}))
	default:
		m.solver.Post(engine.NewElement2(base, m.nexts[i], m.vehicleVars[i], func(next, vehicle int64) int64 {
			return m.ArcCost(from, next, vehicle)
		}))
	}
	gated := m.newVar(0, costInfinity, fmt.Sprintf("GatedArcCost%d", i))
	m.solver.Post(engine.NewBoolProduct(gated, base, m.activeVars[i]))
	return gated
}

// createDisjunction posts the cardinality constraint of disjunction d
// and returns its penalty variable, or nil when serving a member is
// mandatory.
func (m *Model) createDisjunction(d int) *engine.IntVar {
	members := m.disjunctions[d].members
	terms := make([]*engine.IntVar, 0, len(members)+1)
	for _, index := range members {
		terms = append(terms, m.activeVars[index])
	}
	noActive := m.solver.NewBoolVar(fmt.Sprintf("NoActive%d", d))
	terms = append(terms, noActive)
	m.solver.Post(engine.NewSumEquals(terms, m.solver.NewConst(1, fmt.Sprintf("DisjunctionCard%d", d))))
	penalty := m.disjunctions[d].penalty
	if penalty < 0 {
		if err := noActive.SetMax(0); err != nil {
			m.fail(err)
		}
		return nil
	}
	penaltyVar := m.newVar(0, penalty, fmt.Sprintf("Penalty%d", d))
	amount := m.solver.NewConst(penalty, fmt.Sprintf("PenaltyAmount%d", d))
	m.solver.Post(engine.NewBoolProduct(penaltyVar, amount, noActive))
	return penaltyVar
}

// solveTemplate is the decision-variable skeleton driving local search
// and restores: next variables, vehicle variables for heterogeneous
// fleets, and the objective.
func (m *Model) solveTemplate() *engine.Assignment {
	if m.template == nil {
		m.template = engine.NewAssignment()
		m.template.AddVars(m.nexts)
		if !m.homogeneous {
			m.template.AddVars(m.vehicleVars)
		}
		m.template.AddObjective(m.cost)
	}
	return m.template
}

// fullTemplate is the collector skeleton, covering everything a caller
// may want to read back from a solution: dimension cumuls, extra
// variables, the path encoding and the objective.
func (m *Model) fullTemplate() *engine.Assignment {
	full := engine.NewAssignment()
	for _, name := range m.dimensionOrder {
		full.AddVars(m.dimensions[name].cumuls)
	}
	full.AddVars(m.extraVars)
	full.AddVars(m.nexts)
	full.AddVars(m.activeVars)
	full.AddVars(m.vehicleVars)
	full.AddObjective(m.cost)
	return full
}
