package routing

import (
	"fmt"

	"github.com/katalvlaran/lvroute/engine"
)

// VehicleEvaluator maps a vehicle to a per-vehicle quantity, typically
// its capacity along one dimension.
type VehicleEvaluator func(vehicle int64) int64

// dimension bundles the variable arrays of one named cumulative
// quantity: cumuls[i] is the value accumulated on arrival at index i,
// transits[i] what the arc out of i adds (fixed part plus slack).
type dimension struct {
	name     string
	cumuls   []*engine.IntVar
	transits []*engine.IntVar
	slacks   []*engine.IntVar

	// transit prices arcs in index space for the filters and the
	// construction heuristics.
	transit func(from, to int64) int64
}

// AddDimension tracks a cumulative quantity along every route: on each
// arc the quantity grows by evaluator's value plus a slack in
// [0, slackMax], and stays within [0, capacity] at every index.
// fixStartCumulToZero pins the quantity to zero at every route start,
// the natural choice for loads but not for time windows.
func (m *Model) AddDimension(evaluator NodeEvaluator, slackMax, capacity int64, fixStartCumulToZero bool, name string) error {
	return m.addDimension(evaluator, slackMax, capacity, nil, fixStartCumulToZero, name)
}

// AddDimensionWithVehicleCapacity is AddDimension with a per-vehicle
// bound: indices served by vehicle v keep their cumul at or below
// vehicleCapacity(v).
func (m *Model) AddDimensionWithVehicleCapacity(evaluator NodeEvaluator, slackMax int64, vehicleCapacity VehicleEvaluator, fixStartCumulToZero bool, name string) error {
	if vehicleCapacity == nil {
		return fmt.Errorf("%w: nil vehicle capacity evaluator", engine.ErrContract)
	}
	return m.addDimension(evaluator, slackMax, costInfinity, vehicleCapacity, fixStartCumulToZero, name)
}

// AddConstantDimension tracks a quantity growing by value on every arc,
// counting served nodes when value is 1.
func (m *Model) AddConstantDimension(value, capacity int64, fixStartCumulToZero bool, name string) error {
	return m.AddDimension(NewConstantEvaluator(value), 0, capacity, fixStartCumulToZero, name)
}

// AddVectorDimension tracks a quantity growing by values[from] on every
// arc, the usual shape for demands; values needs one entry per node.
func (m *Model) AddVectorDimension(values []int64, capacity int64, fixStartCumulToZero bool, name string) error {
	if len(values) != m.nodes {
		return fmt.Errorf("%w: dimension %q wants %d node values, got %d", engine.ErrContract, name, m.nodes, len(values))
	}
	return m.AddDimension(NewVectorEvaluator(values), 0, capacity, fixStartCumulToZero, name)
}

// AddMatrixDimension tracks a quantity growing by values[from][to] on
// every arc; values must be a nodes by nodes matrix.
func (m *Model) AddMatrixDimension(values [][]int64, capacity int64, fixStartCumulToZero bool, name string) error {
	evaluator, err := NewMatrixEvaluator(values)
	if err != nil {
		return err
	}
	if len(values) != m.nodes {
		return fmt.Errorf("%w: dimension %q wants a %d by %d matrix, got %d rows", engine.ErrContract, name, m.nodes, m.nodes, len(values))
	}
	return m.AddDimension(evaluator, 0, capacity, fixStartCumulToZero, name)
}

func (m *Model) addDimension(evaluator NodeEvaluator, slackMax, capacity int64, vehicleCapacity VehicleEvaluator, fixStartCumulToZero bool, name string) error {
	if err := m.requireOpen("add a dimension"); err != nil {
		return err
	}
	if evaluator == nil {
		return fmt.Errorf("%w: nil transit evaluator", engine.ErrContract)
	}
	if name == "" {
		return fmt.Errorf("%w: dimension needs a name", engine.ErrContract)
	}
	if _, ok := m.dimensions[name]; ok {
		return fmt.Errorf("%w: dimension %q already exists", engine.ErrContract, name)
	}
	if slackMax < 0 || capacity < 0 {
		return fmt.Errorf("%w: dimension %q needs non-negative slack and capacity, got %d and %d", engine.ErrContract, name, slackMax, capacity)
	}
	m.checkDepot()

	d := &dimension{name: name}
	m.makeCumuls(d, vehicleCapacity, capacity)
	m.makeTransits(d, m.maybeCache(evaluator), slackMax)
	m.solver.Post(engine.NewPathCumul(m.nexts, d.cumuls, d.transits))
	if fixStartCumulToZero {
		for v := 0; v < m.vehicles; v++ {
			start := d.cumuls[m.Start(v)]
			if start.Min() != 0 {
				return fmt.Errorf("%w: start cumul of dimension %q cannot be fixed to zero, vehicle %d starts at minimum %d", engine.ErrContract, name, v, start.Min())
			}
			m.rootBind(start, 0)
		}
	}
	m.dimensions[name] = d
	m.dimensionOrder = append(m.dimensionOrder, name)
	return nil
}

// makeCumuls creates the per-index cumul variables and, when a vehicle
// capacity is given, couples each one to the capacity of the vehicle
// serving it. Inactive indices escape the coupling since their vehicle
// is -1.
func (m *Model) makeCumuls(d *dimension, vehicleCapacity VehicleEvaluator, capacity int64) {
	count := m.size + m.vehicles
	d.cumuls = make([]*engine.IntVar, count)
	for i := 0; i < count; i++ {
		d.cumuls[i] = m.newVar(0, capacity, fmt.Sprintf("%s%d", d.name, i))
	}
	if vehicleCapacity == nil {
		return
	}
	// An unassigned vehicle gets an unbounded capacity.
	wrapped := func(vehicle int64) int64 {
		if vehicle >= 0 {
			return vehicleCapacity(vehicle)
		}
		return costInfinity
	}
	for i := 0; i < count; i++ {
		capVar := m.newVar(0, costInfinity, fmt.Sprintf("%sCap%d", d.name, i))
		if m.opts.LightPropagation {
			m.solver.Post(engine.NewLightElement(capVar, m.vehicleVars[i], wrapped))
		} else {
			m.solver.Post(engine.NewElement(capVar, m.vehicleVars[i], wrapped))
		}
		if i < m.size {
			capacityActive := m.solver.NewBoolVar(fmt.Sprintf("%sCapActive%d", d.name, i))
			m.solver.Post(engine.NewLessOrEqual(m.activeVars[i], capacityActive))
			m.solver.Post(engine.NewIsLessOrEqual(d.cumuls[i], capVar, capacityActive))
		} else {
			m.solver.Post(engine.NewLessOrEqual(d.cumuls[i], capVar))
		}
	}
}

// makeTransits creates the per-index transit variables: an element over
// the successor for the fixed part, plus an optional slack.
func (m *Model) makeTransits(d *dimension, evaluator NodeEvaluator, slackMax int64) {
	d.transit = func(from, to int64) int64 {
		a, b := m.IndexToNode(from), m.IndexToNode(to)
		if a < 0 || b < 0 {
			return 0
		}
		return evaluator.Value(a, b)
	}
	d.transits = make([]*engine.IntVar, m.size)
	d.slacks = make([]*engine.IntVar, m.size)
	for i := 0; i < m.size; i++ {
		from := int64(i)
		fixed := m.newVar(-costInfinity, costInfinity, fmt.Sprintf("%sFixedTransit%d", d.name, i))
		fn := func(next int64) int64 { return d.transit(from, next) }
		if m.opts.LightPropagation {
			m.solver.Post(engine.NewLightElement(fixed, m.nexts[i], fn))
		} else {
			m.solver.Post(engine.NewElement(fixed, m.nexts[i], fn))
		}
		if slackMax == 0 {
			d.transits[i] = fixed
			d.slacks[i] = m.solver.NewConst(0, fmt.Sprintf("%sSlack%d", d.name, i))
		} else {
			slack := m.newVar(0, slackMax, fmt.Sprintf("%sSlack%d", d.name, i))
			total := m.newVar(-costInfinity, costInfinity, fmt.Sprintf("%sTransit%d", d.name, i))
			m.solver.Post(engine.NewSumEquals([]*engine.IntVar{slack, fixed}, total))
			d.transits[i] = total
			d.slacks[i] = slack
		}
	}
}

// HasDimension reports whether a dimension of that name exists.
func (m *Model) HasDimension(name string) bool {
	_, ok := m.dimensions[name]
	return ok
}

// AllDimensions lists dimension names in the order they were added.
func (m *Model) AllDimensions() []string {
	names := make([]string, len(m.dimensionOrder))
	copy(names, m.dimensionOrder)
	return names
}

// CumulVar returns the cumul variable of index under the named
// dimension, or nil when the dimension does not exist.
func (m *Model) CumulVar(index int64, name string) *engine.IntVar {
	if d, ok := m.dimensions[name]; ok {
		return d.cumuls[index]
	}
	return nil
}

// TransitVar returns the transit variable of index under the named
// dimension, or nil when the dimension does not exist.
func (m *Model) TransitVar(index int64, name string) *engine.IntVar {
	if d, ok := m.dimensions[name]; ok {
		return d.transits[index]
	}
	return nil
}

// SlackVar returns the slack variable of index under the named
// dimension, or nil when the dimension does not exist.
func (m *Model) SlackVar(index int64, name string) *engine.IntVar {
	if d, ok := m.dimensions[name]; ok {
		return d.slacks[index]
	}
	return nil
}

// TransitValue evaluates the named dimension's fixed transit between
// two indices, 0 for unknown dimensions.
func (m *Model) TransitValue(name string, from, to int64) int64 {
	if d, ok := m.dimensions[name]; ok {
		return d.transit(from, to)
	}
	return 0
}
