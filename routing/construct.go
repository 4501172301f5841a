package routing

import (
	"sort"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/localsearch"
)

// assignBuilder runs a construction heuristic once and then delegates
// to a restore of the produced assignment. The heuristic itself does
// not propagate; the restore replays its decisions under the full
// model, so a heuristic that overlooked a constraint fails cleanly
// instead of producing an unsound solution.
type assignBuilder struct {
	build   func() (*engine.Assignment, bool)
	restore engine.DecisionBuilder
	failed  bool
}

func newAssignBuilder(build func() (*engine.Assignment, bool)) *assignBuilder {
	return &assignBuilder{build: build}
}

func (b *assignBuilder) Next(s *engine.Search) (engine.Decision, error) {
	if b.failed {
		return nil, engine.ErrFailed
	}
	if b.restore == nil {
		target, ok := b.build()
		if !ok {
			b.failed = true
			return nil, engine.ErrFailed
		}
		b.restore = engine.NewRestoreAssignment(target)
	}
	return b.restore.Next(s)
}

// routeLink is a candidate arc between two order indices, tagged with
// the vehicle class it was priced for and that class's depot indices.
type routeLink struct {
	from       int64
	to         int64
	value      float64
	class      int
	startDepot int64
	endDepot   int64
}

// chain is a directed sequence of merged routes. head and tail are
// order indices; nodes counts the merged routes, not the orders.
type chain struct {
	head  int64
	tail  int64
	nodes int
}

// routeConstructor greedily merges singleton routes along a link list,
// keeping every dimension feasible, and writes the surviving routes
// into a target assignment. Links are consumed in the given order, so
// callers control the heuristic by how they order them: sorted savings
// give Clarke-Wright, a sweep order gives the sweep heuristic.
type routeConstructor struct {
	m      *Model
	target *engine.Assignment
	check  bool
	links  []routeLink

	routes        [][]int64
	inRoute       []int
	deletedRoutes map[int]bool
	chains        []chain
	deletedChains map[int]bool
	nodeToChain   []int
	nodeToClass   []int

	dims        []*dimension
	cumuls      [][]int64
	newPossible []map[int64]int64

	noMoreRoutes bool
}

func newRouteConstructor(m *Model, target *engine.Assignment, check bool, links []routeLink) *routeConstructor {
	size := m.Size()
	rc := &routeConstructor{
		m:             m,
		target:        target,
		check:         check,
		links:         links,
		inRoute:       make([]int, size),
		deletedRoutes: make(map[int]bool),
		deletedChains: make(map[int]bool),
		nodeToChain:   make([]int, size),
		nodeToClass:   make([]int, size),
	}
	for i := 0; i < size; i++ {
		rc.inRoute[i] = -1
		rc.nodeToChain[i] = -1
		rc.nodeToClass[i] = -1
	}
	for _, name := range m.dimensionOrder {
		rc.dims = append(rc.dims, m.dimensions[name])
	}
	rc.cumuls = make([][]int64, len(rc.dims))
	rc.newPossible = make([]map[int64]int64, len(rc.dims))
	for i := range rc.cumuls {
		rc.cumuls[i] = make([]int64, size)
	}
	return rc
}

func (rc *routeConstructor) construct() {
	m := rc.m
	size := m.Size()

	// Initially every order is served by its own vehicle.
	for i := 0; i < size; i++ {
		if !m.IsStart(int64(i)) {
			rc.routes = append(rc.routes, []int64{int64(i)})
			rc.inRoute[i] = len(rc.routes) - 1
		}
	}

	for _, link := range rc.links {
		if rc.noMoreRoutes {
			break
		}
		node1 := link.from
		node2 := link.to

		// The first time an order shows up its cumuls start from the
		// depot leg.
		if rc.nodeToClass[node1] < 0 {
			for di, d := range rc.dims {
				rc.cumuls[di][node1] = max(d.transit(link.startDepot, node1), d.cumuls[node1].Min())
			}
		}
		if rc.nodeToClass[node2] < 0 {
			for di, d := range rc.dims {
				rc.cumuls[di][node2] = max(d.transit(link.startDepot, node2), d.cumuls[node2].Min())
			}
		}

		route1 := rc.inRoute[node1]
		route2 := rc.inRoute[node2]
		if route1 < 0 || route2 < 0 {
			continue
		}
		feasible := rc.feasibleMerge(node1, node2, route1, route2, link.class, link.endDepot)
		if rc.merge(feasible, route1, route2) {
			rc.nodeToClass[node1] = link.class
			rc.nodeToClass[node2] = link.class
		}
	}

	var finalChains []chain
	for i, c := range rc.chains {
		if !rc.deletedChains[i] {
			finalChains = append(finalChains, c)
		}
	}
	sort.SliceStable(finalChains, func(i, j int) bool {
		return finalChains[i].nodes < finalChains[j].nodes
	})
	var finalRoutes [][]int64
	for i, r := range rc.routes {
		if !rc.deletedRoutes[i] {
			finalRoutes = append(finalRoutes, r)
		}
	}
	sort.SliceStable(finalRoutes, func(i, j int) bool {
		return len(finalRoutes[i]) < len(finalRoutes[j])
	})

	// When there are more chains than vehicles the smallest ones are
	// dropped; their orders end up unperformed.
	extra := max(0, len(finalChains)-m.Vehicles())
	chainIndex := extra
	for ; chainIndex < len(finalChains); chainIndex++ {
		vehicle := chainIndex - extra
		if vehicle >= m.Vehicles() {
			break
		}
		c := finalChains[chainIndex]
		rc.target.SetValue(m.NextVar(m.Start(vehicle)), c.head)
		rc.target.SetValue(m.nexts[c.tail], m.End(vehicle))
	}

	// Remaining vehicles serve the surviving single order routes.
	for _, r := range finalRoutes {
		vehicle := chainIndex - extra
		if vehicle >= m.Vehicles() {
			break
		}
		head, tail := r[0], r[len(r)-1]
		if head == tail && head < int64(size) {
			rc.target.SetValue(m.NextVar(m.Start(vehicle)), head)
			rc.target.SetValue(m.nexts[tail], m.End(vehicle))
			chainIndex++
		}
	}

	finishTarget(m, rc.target)
}

func (rc *routeConstructor) head(node int64) bool {
	r := rc.inRoute[node]
	return r >= 0 && rc.routes[r][0] == node
}

func (rc *routeConstructor) tail(node int64) bool {
	r := rc.inRoute[node]
	return r >= 0 && rc.routes[r][len(rc.routes[r])-1] == node
}

func (rc *routeConstructor) feasibleMerge(node1, node2 int64, route1, route2, class int, endDepot int64) bool {
	if route1 == route2 || !rc.tail(node1) || !rc.head(node2) {
		return false
	}
	// Orders already committed to another vehicle class cannot merge.
	c1, c2 := rc.nodeToClass[node1], rc.nodeToClass[node2]
	if (c1 != -1 && c1 != class) || (c2 != -1 && c2 != class) {
		return false
	}
	for di := range rc.dims {
		rc.newPossible[di] = make(map[int64]int64)
		if !rc.checkRouteConnection(rc.routes[route1], rc.routes[route2], di, endDepot) {
			return false
		}
	}
	return true
}

// checkRouteConnection decides whether route2 can follow route1 on one
// dimension, propagating the arrival shift through route2 and checking
// that its tail can still reach the end depot.
func (rc *routeConstructor) checkRouteConnection(route1, route2 []int64, di int, endDepot int64) bool {
	m := rc.m
	d := rc.dims[di]
	tail1 := route1[len(route1)-1]
	head2 := route2[0]
	tail2 := route2[len(route2)-1]

	nonDepot := int64(-1)
	for i := 0; i < m.Size(); i++ {
		if !m.IsStart(int64(i)) {
			nonDepot = int64(i)
			break
		}
	}
	if nonDepot < 0 {
		return false
	}
	threshold := max(d.slacks[nonDepot].Max(), d.cumuls[nonDepot].Max())

	availableFromTail1 := rc.cumuls[di][tail1] + d.transit(tail1, head2)
	newHead2 := max(rc.cumuls[di][head2], availableFromTail1)
	if slack := newHead2 - availableFromTail1; slack > d.slacks[tail1].Max() {
		newHead2 = availableFromTail1 + d.slacks[tail1].Max()
	}
	if newHead2 > d.cumuls[head2].Max() {
		return false
	}
	if newHead2 <= rc.cumuls[di][head2] {
		return true
	}

	feasible := rc.feasibleRoute(route2, newHead2, di)
	tail2Cumul, ok := rc.newPossible[di][tail2]
	if !ok {
		tail2Cumul = rc.cumuls[di][tail2]
	}
	if !feasible || tail2Cumul+d.transit(tail2, endDepot) > threshold {
		return false
	}
	return true
}

// feasibleRoute pushes a new head cumul through the route, recording
// each shifted cumul as a possible update. It stops early once the
// shift is absorbed by stored cumuls.
func (rc *routeConstructor) feasibleRoute(route []int64, routeCumul int64, di int) bool {
	d := rc.dims[di]
	cumul := routeCumul
	for i, node := range route {
		rc.newPossible[di][node] = cumul
		if i == len(route)-1 {
			return true
		}
		next := route[i+1]
		availableFromNode := cumul + d.transit(node, next)
		availableNext := max(rc.cumuls[di][next], availableFromNode)
		if slack := availableNext - availableFromNode; slack > d.slacks[node].Max() {
			availableNext = availableFromNode + d.slacks[node].Max()
		}
		if availableNext > d.cumuls[next].Max() {
			return false
		}
		if availableNext <= rc.cumuls[di][next] {
			return true
		}
		cumul = availableNext
	}
	return true
}

// checkTempAssignment restores a copy of the partial assignment plus
// the candidate chain arcs under full propagation. Expensive, but the
// only exact feasibility test for constraints the cumul walk cannot
// see.
func (rc *routeConstructor) checkTempAssignment(newChain, oldChain int, head1, tail1, head2, tail2 int64) bool {
	m := rc.m
	temp := rc.target.Copy()
	temp.SetValue(m.NextVar(m.Start(newChain)), head1)
	temp.SetValue(m.nexts[tail1], head2)
	temp.SetValue(m.nexts[tail2], m.End(newChain))
	for i, c := range rc.chains {
		if i == newChain || i == oldChain || rc.deletedChains[i] {
			continue
		}
		temp.SetValue(m.NextVar(m.Start(i)), c.head)
		temp.SetValue(m.nexts[c.tail], m.End(i))
	}
	found, _ := engine.Solve(m.solver, engine.NewRestoreAssignment(temp), nil, engine.SearchLimit{})
	return found
}

// updateAssignment folds the merged route into the chain bookkeeping.
// Chains are numbered by the vehicle that will serve them, so a new
// chain beyond the fleet size ends construction.
func (rc *routeConstructor) updateAssignment(route1, route2 []int64) bool {
	m := rc.m
	feasible := true
	head1, tail1 := route1[0], route1[len(route1)-1]
	head2, tail2 := route2[0], route2[len(route2)-1]
	chain1 := rc.nodeToChain[head1]
	chain2 := rc.nodeToChain[head2]
	switch {
	case chain1 < 0 && chain2 < 0:
		chainIndex := len(rc.chains)
		if chainIndex >= m.Vehicles() {
			rc.noMoreRoutes = true
			return false
		}
		if rc.check {
			feasible = rc.checkTempAssignment(chainIndex, -1, head1, tail1, head2, tail2)
		}
		if feasible {
			rc.nodeToChain[head1] = chainIndex
			rc.nodeToChain[tail2] = chainIndex
			rc.chains = append(rc.chains, chain{head: head1, tail: tail2, nodes: 2})
		}
	case chain1 >= 0 && chain2 < 0:
		if rc.check {
			feasible = rc.checkTempAssignment(chain1, chain2, head1, tail1, head2, tail2)
		}
		if feasible {
			rc.nodeToChain[tail2] = chain1
			rc.chains[chain1].head = head1
			rc.chains[chain1].tail = tail2
			rc.chains[chain1].nodes++
		}
	case chain1 < 0 && chain2 >= 0:
		if rc.check {
			feasible = rc.checkTempAssignment(chain2, chain1, head1, tail1, head2, tail2)
		}
		if feasible {
			rc.nodeToChain[head1] = chain2
			rc.chains[chain2].head = head1
			rc.chains[chain2].tail = tail2
			rc.chains[chain2].nodes++
		}
	default:
		if rc.check {
			feasible = rc.checkTempAssignment(chain1, chain2, head1, tail1, head2, tail2)
		}
		if feasible {
			rc.nodeToChain[tail2] = chain1
			rc.chains[chain1].head = head1
			rc.chains[chain1].tail = tail2
			rc.chains[chain1].nodes += rc.chains[chain2].nodes
			rc.deletedChains[chain2] = true
		}
	}
	if feasible {
		rc.target.SetValue(m.nexts[tail1], head2)
	}
	return feasible
}

// merge commits a feasible merge: route2 is appended to route1 and the
// shifted cumuls recorded during the feasibility walk become current.
func (rc *routeConstructor) merge(feasible bool, route1, route2 int) bool {
	if !feasible || !rc.updateAssignment(rc.routes[route1], rc.routes[route2]) {
		return false
	}
	for _, node := range rc.routes[route2] {
		rc.inRoute[node] = route1
		rc.routes[route1] = append(rc.routes[route1], node)
	}
	for di := range rc.dims {
		for node, cumul := range rc.newPossible[di] {
			rc.cumuls[di][node] = cumul
		}
	}
	rc.deletedRoutes[route2] = true
	return true
}

// finishTarget registers every undecided next in the target so the
// restore covers them, binding the self loop where it is still in the
// domain.
func finishTarget(m *Model, target *engine.Assignment) {
	for i := 0; i < m.Size(); i++ {
		next := m.nexts[i]
		if target.Contains(next) {
			continue
		}
		if next.Contains(int64(i)) {
			target.SetValue(next, int64(i))
		} else {
			target.Add(next)
		}
	}
}

// savingsBuilder builds a first solution with the Clarke-Wright
// savings heuristic. With check set every merge is verified by a
// nested restore under full propagation.
func (m *Model) savingsBuilder(check bool) engine.DecisionBuilder {
	return newAssignBuilder(func() (*engine.Assignment, bool) {
		target := engine.NewAssignment()
		newRouteConstructor(m, target, check, m.savingsLinks()).construct()
		return target, true
	})
}

// savingsLinks prices every order pair of every vehicle class by its
// savings value, most valuable first. The saving of serving to right
// after from is the cost of the two depot legs it removes minus the
// weighted cost of the new arc.
func (m *Model) savingsLinks() []routeLink {
	shape := m.opts.SavingsShape
	var links []routeLink
	for classIndex, class := range m.vehicleClasses() {
		start, end := class.startDepot, class.endDepot
		for i := 0; i < m.Size(); i++ {
			from := int64(i)
			if m.IsStart(from) || from == start || from == end {
				continue
			}
			for j := 0; j < m.Size(); j++ {
				to := int64(j)
				if to == from || m.IsStart(to) || to == start || to == end {
					continue
				}
				saving := float64(m.classArcCost(from, start, class.costClass)) +
					float64(m.classArcCost(end, to, class.costClass)) -
					shape*float64(m.classArcCost(from, to, class.costClass))
				links = append(links, routeLink{
					from:       from,
					to:         to,
					value:      saving,
					class:      classIndex,
					startDepot: start,
					endDepot:   end,
				})
			}
		}
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].value > links[j].value })
	return links
}

// allUnperformedBuilder deactivates every order. It does no branching
// and fails when some order cannot be inactive.
func (m *Model) allUnperformedBuilder() engine.DecisionBuilder {
	return newAssignBuilder(func() (*engine.Assignment, bool) {
		target := engine.NewAssignment()
		for i := 0; i < m.Size(); i++ {
			if !m.IsStart(int64(i)) {
				target.SetValue(m.activeVars[i], 0)
			}
		}
		return target, true
	})
}

// fastOnePathBuilder chains the whole problem into a single path by
// always extending with the cheapest arc, without propagating. Very
// fast, but likely to fail when constraints beyond the path structure
// are present, so it runs inside a Try with a propagating phase as
// fallback.
func (m *Model) fastOnePathBuilder() engine.DecisionBuilder {
	return newAssignBuilder(func() (*engine.Assignment, bool) {
		target := engine.NewAssignment()
		index, ok := m.findPathStart()
		if !ok {
			return target, true
		}
		next := m.findCheapestNext(index, target)
		for next >= 0 {
			target.SetValue(m.nexts[index], next)
			index = next
			// Alternates of a performed order loop to themselves.
			if index < int64(m.Size()) {
				if di := m.indexToDisjunction[index]; di != noDisjunction {
					for _, alternate := range m.disjunctions[di].members {
						if alternate != index {
							target.SetValue(m.nexts[alternate], alternate)
						}
					}
				}
			}
			next = m.findCheapestNext(index, target)
		}
		finishTarget(m, target)
		return target, true
	})
}

// findPathStart picks where the single path should grow: the end of an
// existing partial path if there is one, otherwise an order no other
// order can precede, otherwise the first unbound next.
func (m *Model) findPathStart() (int64, bool) {
	size := m.Size()
	for i := size - 1; i >= 0; i-- {
		if m.nexts[i].Bound() {
			next := m.nexts[i].Value()
			if next < int64(size) && !m.nexts[next].Bound() {
				return next, true
			}
		}
	}
	for i := size - 1; i >= 0; i-- {
		if !m.nexts[i].Bound() {
			hasPrev := false
			for j := 0; j < size; j++ {
				if m.nexts[j].Contains(int64(i)) {
					hasPrev = true
					break
				}
			}
			if !hasPrev {
				return int64(i), true
			}
		}
	}
	for i := 0; i < size; i++ {
		if !m.nexts[i].Bound() {
			return int64(i), true
		}
	}
	return 0, false
}

// findCheapestNext returns the cheapest extension of the path ending at
// index that is not already followed by something, or -1.
func (m *Model) findCheapestNext(index int64, target *engine.Assignment) int64 {
	size := int64(m.Size())
	if index >= size {
		return -1
	}
	best := costInfinity
	bestValue := int64(-1)
	m.nexts[index].IterateValues(func(value int64) bool {
		if value != index && (value >= size || !target.Contains(m.nexts[value])) {
			if evaluation := m.FirstSolutionCost(index, value); evaluation <= best {
				best = evaluation
				bestValue = value
			}
		}
		return true
	})
	return bestValue
}

// bestInsertionBuilder starts from the all-unperformed solution and
// inserts orders back greedily under the model's filters, using the
// activation neighborhood only.
func (m *Model) bestInsertionBuilder(finalizer engine.DecisionBuilder) engine.DecisionBuilder {
	return newAssignBuilder(func() (*engine.Assignment, bool) {
		seed := m.solveOnce(engine.NewCompose(m.allUnperformedBuilder(), finalizer))
		if seed == nil {
			return nil, false
		}
		meta := localsearch.NewDescent(m.opts.OptimizationStep)
		improved, _ := localsearch.Improve(m.solver, seed, m.insertionOperator(), finalizer, localsearch.Options{
			Filters:  m.localSearchFilters(meta),
			Meta:     meta,
			Limit:    engine.SearchLimit{TimeLimit: m.opts.TimeLimit},
			LNSLimit: m.opts.LNSTimeLimit,
		})
		if improved == nil {
			return nil, false
		}
		return improved, true
	})
}

// solveOnce runs db to its first solution and returns it, or nil.
func (m *Model) solveOnce(db engine.DecisionBuilder) *engine.Assignment {
	collector := engine.NewSolutionCollector(m.solveTemplate())
	limit := engine.SearchLimit{TimeLimit: m.opts.TimeLimit, Solutions: 1}
	if found, _ := engine.Solve(m.solver, db, collector, limit); !found {
		return nil
	}
	return collector.Best()
}
