package routing

import (
	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/localsearch"
)

// localSearchFilters assembles the filter stack in evaluation order.
// The objective filter feeds its arc cost sum to the disjunction
// filter, which completes it with the penalty terms before checking
// the metaheuristic bound, so their relative order is fixed.
func (m *Model) localSearchFilters(meta localsearch.Metaheuristic) []localsearch.Filter {
	var filters []localsearch.Filter
	var disjunction *disjunctionFilter
	if m.opts.UseDisjunctionFilter && len(m.disjunctions) > 0 {
		disjunction = newDisjunctionFilter(m, meta)
	}
	if m.opts.UseObjectiveFilter {
		filters = append(filters, newObjectiveFilter(m, meta, disjunction))
	}
	filters = append(filters, localsearch.NewVariableDomainFilter())
	if disjunction != nil {
		filters = append(filters, disjunction)
	}
	if m.opts.UsePickupDeliveryFilter && len(m.pairs) > 0 {
		filters = append(filters, newPrecedenceFilter(m))
	}
	if m.opts.UsePathCumulFilter {
		for _, name := range m.dimensionOrder {
			filters = append(filters, newPathCumulFilter(m, m.dimensions[name]))
		}
	}
	return filters
}

// nextIndexOf maps each successor variable back to its index.
func (m *Model) nextIndexOf() map[*engine.IntVar]int64 {
	indexOf := make(map[*engine.IntVar]int64, len(m.nexts))
	for i, v := range m.nexts {
		indexOf[v] = int64(i)
	}
	return indexOf
}

// objectiveFilter tracks the arc cost contribution of every successor
// variable and screens moves whose recomputed sum cannot beat the
// metaheuristic bound. With a disjunction filter downstream it hands
// the sum over instead of judging alone, since penalties are part of
// the objective.
type objectiveFilter struct {
	m       *Model
	meta    localsearch.Metaheuristic
	inject  *disjunctionFilter
	indexOf map[*engine.IntVar]int64
	// vehicleIndexOf is nil for a homogeneous fleet; arc costs then
	// ignore which vehicle drives them.
	vehicleIndexOf map[*engine.IntVar]int64
	nextValues     []int64
	vehicleValues  []int64
	contribution   []int64
	total          int64
}

func newObjectiveFilter(m *Model, meta localsearch.Metaheuristic, inject *disjunctionFilter) *objectiveFilter {
	f := &objectiveFilter{
		m:            m,
		meta:         meta,
		inject:       inject,
		indexOf:      m.nextIndexOf(),
		nextValues:   make([]int64, m.Size()),
		contribution: make([]int64, m.Size()),
	}
	if !m.homogeneous {
		f.vehicleIndexOf = make(map[*engine.IntVar]int64, m.Size())
		for i := 0; i < m.Size(); i++ {
			f.vehicleIndexOf[m.vehicleVars[i]] = int64(i)
		}
		f.vehicleValues = make([]int64, m.Size())
	}
	return f
}

func (f *objectiveFilter) Synchronize(a *engine.Assignment) {
	m := f.m
	total := int64(0)
	for i := 0; i < m.Size(); i++ {
		index := int64(i)
		next := index
		if a.HasValue(m.nexts[i]) {
			next = a.Value(m.nexts[i])
		}
		f.nextValues[i] = next
		var cost int64
		if f.vehicleIndexOf != nil {
			vehicle := int64(Unassigned)
			if a.HasValue(m.vehicleVars[i]) {
				vehicle = a.Value(m.vehicleVars[i])
			}
			f.vehicleValues[i] = vehicle
			cost = m.ArcCost(index, next, vehicle)
		} else {
			cost = m.homogeneousCost(index, next)
		}
		f.contribution[i] = cost
		total += cost
	}
	f.total = total
	if f.inject != nil {
		f.inject.injected = 0
	}
}

func (f *objectiveFilter) Accept(delta *localsearch.Delta) bool {
	newNexts := make(map[int64]int64)
	newVehicles := make(map[int64]int64)
	affected := make(map[int64]struct{})
	for _, ch := range delta.Changes() {
		if index, ok := f.indexOf[ch.Var]; ok {
			newNexts[index] = ch.Value
			affected[index] = struct{}{}
			continue
		}
		if f.vehicleIndexOf != nil {
			if index, ok := f.vehicleIndexOf[ch.Var]; ok {
				newVehicles[index] = ch.Value
				affected[index] = struct{}{}
			}
		}
	}
	total := f.total
	for index := range affected {
		next, ok := newNexts[index]
		if !ok {
			next = f.nextValues[index]
		}
		var cost int64
		if f.vehicleIndexOf != nil {
			vehicle, ok := newVehicles[index]
			if !ok {
				vehicle = f.vehicleValues[index]
			}
			cost = f.m.ArcCost(index, next, vehicle)
		} else {
			cost = f.m.homogeneousCost(index, next)
		}
		total += cost - f.contribution[index]
	}
	if f.inject != nil {
		f.inject.injected = total
	}
	return total <= f.meta.Bound()
}

// disjunctionFilter keeps per disjunction counts of active members. It
// rejects moves activating two members of one disjunction, moves
// deactivating a mandatory order, and moves whose objective including
// the penalty terms cannot beat the metaheuristic bound.
type disjunctionFilter struct {
	m       *Model
	meta    localsearch.Metaheuristic
	indexOf map[*engine.IntVar]int64
	values  []int64
	active  []int
	penalty int64
	// injected is the arc cost sum handed over by the objective filter
	// for the move under screening, zero when that filter is off.
	injected int64
}

func newDisjunctionFilter(m *Model, meta localsearch.Metaheuristic) *disjunctionFilter {
	return &disjunctionFilter{
		m:       m,
		meta:    meta,
		indexOf: m.nextIndexOf(),
		values:  make([]int64, m.Size()),
		active:  make([]int, len(m.disjunctions)),
	}
}

func (f *disjunctionFilter) Synchronize(a *engine.Assignment) {
	m := f.m
	for i := 0; i < m.Size(); i++ {
		f.values[i] = int64(i)
		if a.HasValue(m.nexts[i]) {
			f.values[i] = a.Value(m.nexts[i])
		}
	}
	f.penalty = 0
	for di, d := range m.disjunctions {
		count := 0
		for _, member := range d.members {
			if f.values[member] != member {
				count++
			}
		}
		f.active[di] = count
		if count == 0 && d.penalty > 0 {
			f.penalty += d.penalty
		}
	}
	f.injected = 0
}

func (f *disjunctionFilter) Accept(delta *localsearch.Delta) bool {
	activeDeltas := make(map[int]int)
	for _, ch := range delta.Changes() {
		index, ok := f.indexOf[ch.Var]
		if !ok {
			continue
		}
		di := f.m.indexToDisjunction[index]
		if di == noDisjunction {
			continue
		}
		wasInactive := f.values[index] == index
		isInactive := ch.Value == index
		if wasInactive && !isInactive {
			activeDeltas[di]++
		} else if !wasInactive && isInactive {
			activeDeltas[di]--
		}
	}
	objective := f.injected + f.penalty
	for di, d := range activeDeltas {
		if f.active[di]+d > 1 {
			return false
		}
		penalty := f.m.disjunctions[di].penalty
		if d < 0 {
			// Dropping the only active member pays the penalty; a
			// mandatory disjunction has none to pay.
			if penalty < 0 {
				return false
			}
			objective += penalty
		} else if d > 0 {
			objective -= penalty
		}
	}
	return objective <= f.meta.Bound()
}

// basePathFilter tracks which path every index belongs to in the
// committed solution and re-checks only the paths a move touches.
// Concrete screens plug in their per path feasibility walk.
type basePathFilter struct {
	m          *Model
	indexOf    map[*engine.IntVar]int64
	values     []int64
	pathStarts []int64
	acceptPath func(delta *localsearch.Delta, start int64) bool
}

func newBasePathFilter(m *Model) *basePathFilter {
	return &basePathFilter{
		m:          m,
		indexOf:    m.nextIndexOf(),
		values:     make([]int64, m.Size()),
		pathStarts: make([]int64, m.Size()+m.Vehicles()),
	}
}

func (f *basePathFilter) Synchronize(a *engine.Assignment) {
	m := f.m
	size := int64(m.Size())
	for i := int64(0); i < size; i++ {
		f.values[i] = i
		if a.HasValue(m.nexts[i]) {
			f.values[i] = a.Value(m.nexts[i])
		}
	}
	// An index without a predecessor starts a path; an inactive index
	// is its own predecessor and belongs to none.
	hasPrev := make([]bool, size)
	for i := int64(0); i < size; i++ {
		if f.values[i] < size {
			hasPrev[f.values[i]] = true
		}
	}
	for i := range f.pathStarts {
		f.pathStarts[i] = Unassigned
	}
	for i := int64(0); i < size; i++ {
		if hasPrev[i] {
			continue
		}
		start := i
		node := start
		f.pathStarts[node] = start
		next := f.values[node]
		for next < size {
			node = next
			f.pathStarts[node] = start
			next = f.values[node]
		}
		f.pathStarts[next] = start
	}
}

func (f *basePathFilter) Accept(delta *localsearch.Delta) bool {
	// The operators touch one or two paths per move, so a linear scan
	// of the collected starts beats a set.
	var touched []int64
	for _, ch := range delta.Changes() {
		index, ok := f.indexOf[ch.Var]
		if !ok {
			continue
		}
		start := f.pathStarts[index]
		if start == Unassigned {
			continue
		}
		seen := false
		for _, s := range touched {
			if s == start {
				seen = true
				break
			}
		}
		if !seen {
			touched = append(touched, start)
		}
	}
	for _, start := range touched {
		if !f.acceptPath(delta, start) {
			return false
		}
	}
	return true
}

// next resolves the successor of node under the move, falling back to
// the committed value.
func (f *basePathFilter) next(delta *localsearch.Delta, node int64) int64 {
	if value, ok := delta.Value(f.m.nexts[node]); ok {
		return value
	}
	return f.values[node]
}

// newPathCumulFilter screens moves against one dimension: it walks the
// touched path accumulating transits and rejects when a cumul would
// overflow its variable's upper bound.
func newPathCumulFilter(m *Model, d *dimension) *basePathFilter {
	f := newBasePathFilter(m)
	size := int64(m.Size())
	f.acceptPath = func(delta *localsearch.Delta, start int64) bool {
		node := start
		cumul := d.cumuls[node].Min()
		for node < size {
			next := f.next(delta, node)
			cumul += d.transit(node, next)
			if cumul > d.cumuls[next].Max() {
				return false
			}
			cumul = max(d.cumuls[next].Min(), cumul)
			node = next
		}
		return true
	}
	return f
}

// newPrecedenceFilter screens moves against the pickup and delivery
// pairs: along a touched path no delivery may precede its pickup and
// both must share the path.
func newPrecedenceFilter(m *Model) *basePathFilter {
	f := newBasePathFilter(m)
	size := int64(m.Size())
	pairFirst := make([]int64, size)
	pairSecond := make([]int64, size)
	for i := range pairFirst {
		pairFirst[i] = Unassigned
		pairSecond[i] = Unassigned
	}
	for _, p := range m.pairs {
		pairFirst[p.First] = p.Second
		pairSecond[p.Second] = p.First
	}
	f.acceptPath = func(delta *localsearch.Delta, start int64) bool {
		visited := make([]bool, size)
		node := start
		length := int64(1)
		for node < size {
			if length > size {
				return false
			}
			if first := pairFirst[node]; first != Unassigned && visited[first] {
				return false
			}
			if second := pairSecond[node]; second != Unassigned && !visited[second] {
				return false
			}
			visited[node] = true
			node = f.next(delta, node)
			length++
		}
		return true
	}
	return f
}
