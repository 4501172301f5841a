package routing

import (
	"fmt"

	log "github.com/golang/glog"

	"github.com/katalvlaran/lvroute/engine"
)

// doRestoreAssignment freezes target into a complete solution: the
// stored values are replayed through propagation and the finalizer
// binds whatever they leave open. Infeasible targets set status Fail
// and yield nil.
func (m *Model) doRestoreAssignment(target *engine.Assignment) *engine.Assignment {
	collector := engine.NewSolutionCollector(m.fullTemplate())
	db := engine.NewCompose(engine.NewRestoreAssignment(target), m.solutionFinalizer())
	limit := engine.SearchLimit{TimeLimit: m.opts.TimeLimit, Solutions: 1}
	if found, _ := engine.Solve(m.solver, db, collector, limit); found {
		m.best = collector.Best()
		m.status = Success
		return m.best
	}
	m.status = Fail
	return nil
}

// checkAssignment replays a complete assignment through propagation and
// reports whether it survives.
func (m *Model) checkAssignment(assignment *engine.Assignment) bool {
	db := engine.NewCompose(engine.NewRestoreAssignment(assignment), m.solutionFinalizer())
	found, _ := engine.Solve(m.solver, db, nil, engine.SearchLimit{})
	return found
}

// RestoreAssignment turns a partial solution into a full one by
// replaying its values and completing the rest, closing the model
// first if needed. Nil means the values are infeasible; Status tells.
func (m *Model) RestoreAssignment(solution *engine.Assignment) *engine.Assignment {
	m.quietClose()
	if solution == nil {
		m.status = Fail
		return nil
	}
	target := m.fullTemplate()
	target.CopyFrom(solution)
	return m.doRestoreAssignment(target)
}

// WriteAssignment saves the best assignment of the latest successful
// solve to path.
func (m *Model) WriteAssignment(path string) error {
	if m.best == nil {
		return fmt.Errorf("%w: no solution to write, solve first", engine.ErrContract)
	}
	return m.best.Save(path)
}

// ReadAssignment loads an assignment snapshot from path and freezes it
// into a solution. A nil assignment with a nil error means the loaded
// values are no longer feasible.
func (m *Model) ReadAssignment(path string) (*engine.Assignment, error) {
	m.quietClose()
	target := m.fullTemplate()
	if err := target.Load(path); err != nil {
		return nil, err
	}
	return m.doRestoreAssignment(target), nil
}

// RoutesToAssignment writes routes into target as next-variable values.
// Route r lists the nodes visited by vehicle r in order, without the
// start and end depots. Inactive nodes either fail or are skipped,
// per ignoreInactive. With closeRoutes set, every route is closed onto
// its vehicle end and all unvisited indices become inactive self-loops,
// making the target a complete candidate solution.
func (m *Model) RoutesToAssignment(routes [][]Node, ignoreInactive, closeRoutes bool, target *engine.Assignment) error {
	if target == nil {
		return fmt.Errorf("%w: RoutesToAssignment needs a target assignment", engine.ErrContract)
	}
	if !m.closed {
		return fmt.Errorf("%w: the model is not closed yet", engine.ErrContract)
	}
	if len(routes) > m.vehicles {
		return fmt.Errorf("%w: %d routes for %d vehicles", engine.ErrContract, len(routes), m.vehicles)
	}

	visited := make(map[int64]bool)
	for vehicle, route := range routes {
		fromIndex := m.Start(vehicle)
		if visited[fromIndex] {
			return fmt.Errorf("%w: start index %d of vehicle %d is already used", engine.ErrContract, fromIndex, vehicle)
		}
		visited[fromIndex] = true

		for _, toNode := range route {
			if toNode < 0 || int(toNode) >= m.nodes {
				return fmt.Errorf("%w: invalid node %d", engine.ErrContract, toNode)
			}
			toIndex := m.NodeToIndex(toNode)
			if toIndex < 0 || toIndex >= int64(m.size) {
				return fmt.Errorf("%w: node %d cannot be visited mid-route", engine.ErrContract, toNode)
			}
			if m.activeVars[toIndex].Max() == 0 {
				if ignoreInactive {
					continue
				}
				return fmt.Errorf("%w: node %d is not active", engine.ErrContract, toNode)
			}
			if visited[toIndex] {
				return fmt.Errorf("%w: node %d is used multiple times", engine.ErrContract, toNode)
			}
			visited[toIndex] = true
			if !m.vehicleVars[toIndex].Contains(int64(vehicle)) {
				return fmt.Errorf("%w: vehicle %d is not allowed at node %d", engine.ErrContract, vehicle, toNode)
			}
			target.SetValue(m.nexts[fromIndex], toIndex)
			fromIndex = toIndex
		}
		if closeRoutes {
			target.SetValue(m.nexts[fromIndex], m.End(vehicle))
		}
	}

	// The remaining vehicles stay unused. Their starts still count as
	// visited so that closing deactivates the right indices.
	for vehicle := len(routes); vehicle < m.vehicles; vehicle++ {
		startIndex := m.Start(vehicle)
		if visited[startIndex] {
			return fmt.Errorf("%w: start index %d is used multiple times", engine.ErrContract, startIndex)
		}
		visited[startIndex] = true
		if closeRoutes {
			target.SetValue(m.nexts[startIndex], m.End(vehicle))
		}
	}

	if closeRoutes {
		for index := int64(0); index < int64(m.size); index++ {
			if !visited[index] {
				target.SetValue(m.nexts[index], index)
			}
		}
	}
	return nil
}

// ReadAssignmentFromRoutes builds a solution directly from routes. The
// routes are validated and frozen through propagation, so constraints
// not checked by RoutesToAssignment can still make this fail, with a
// nil assignment and status Fail.
func (m *Model) ReadAssignmentFromRoutes(routes [][]Node, ignoreInactive bool) (*engine.Assignment, error) {
	m.quietClose()
	target := m.fullTemplate()
	if err := m.RoutesToAssignment(routes, ignoreInactive, true, target); err != nil {
		return nil, err
	}
	return m.doRestoreAssignment(target), nil
}

// AssignmentToRoutes converts a solution back to per-vehicle node
// lists, the inverse of RoutesToAssignment with closed routes. Inactive
// nodes appear in no route.
func (m *Model) AssignmentToRoutes(assignment *engine.Assignment) ([][]Node, error) {
	if assignment == nil {
		return nil, fmt.Errorf("%w: AssignmentToRoutes needs an assignment", engine.ErrContract)
	}
	if !m.closed {
		return nil, fmt.Errorf("%w: the model is not closed yet", engine.ErrContract)
	}
	routes := make([][]Node, m.vehicles)
	for vehicle := 0; vehicle < m.vehicles; vehicle++ {
		first := m.nexts[m.Start(vehicle)]
		if !assignment.HasValue(first) {
			return nil, fmt.Errorf("%w: the start of vehicle %d is not bound", engine.ErrContract, vehicle)
		}
		current := assignment.Value(first)
		visited := 0
		for !m.IsEnd(current) {
			routes[vehicle] = append(routes[vehicle], m.IndexToNode(current))
			next := m.nexts[current]
			if !assignment.HasValue(next) {
				return nil, fmt.Errorf("%w: index %d is not bound", engine.ErrContract, current)
			}
			current = assignment.Value(next)
			visited++
			if visited > m.size {
				return nil, fmt.Errorf("%w: the assignment contains a cycle", engine.ErrContract)
			}
		}
	}
	return routes, nil
}

// IsVehicleUsed reports whether vehicle serves at least one node in
// assignment.
func (m *Model) IsVehicleUsed(assignment *engine.Assignment, vehicle int) bool {
	if assignment == nil || vehicle < 0 || vehicle >= m.vehicles {
		return false
	}
	startVar := m.nexts[m.Start(vehicle)]
	if !assignment.HasValue(startVar) {
		return false
	}
	return !m.IsEnd(assignment.Value(startVar))
}

// Next returns the successor of index in assignment.
func (m *Model) Next(assignment *engine.Assignment, index int64) int64 {
	return assignment.Value(m.nexts[index])
}

// findNextActive returns the first position after index whose lock
// still can be active.
func (m *Model) findNextActive(index int, locks []int64) int {
	index++
	for index < len(locks) && m.activeVars[locks[index]].Max() == 0 {
		index++
	}
	return index
}

// ApplyLocks chains the given indices into the preassignment of a
// single-vehicle model: each lock is forced to be followed by the next
// one, skipping deactivated indices. It returns the next variable of
// the last lock, left unbound for the search to extend, or nil when
// every lock is inactive. The previous preassignment is discarded.
func (m *Model) ApplyLocks(locks []int64) (*engine.IntVar, error) {
	if m.vehicles != 1 {
		return nil, fmt.Errorf("%w: ApplyLocks works on single-vehicle models, got %d vehicles", engine.ErrContract, m.vehicles)
	}
	for _, lock := range locks {
		if lock < 0 || lock >= int64(m.size) {
			return nil, fmt.Errorf("%w: lock index %d out of range", engine.ErrContract, lock)
		}
	}
	m.preassignment = engine.NewAssignment()
	var nextVar *engine.IntVar
	lockIndex := m.findNextActive(-1, locks)
	if lockIndex < len(locks) {
		nextVar = m.nexts[locks[lockIndex]]
		m.preassignment.Add(nextVar)
		for lockIndex = m.findNextActive(lockIndex, locks); lockIndex < len(locks); lockIndex = m.findNextActive(lockIndex, locks) {
			m.preassignment.SetValue(nextVar, locks[lockIndex])
			nextVar = m.nexts[locks[lockIndex]]
			m.preassignment.Add(nextVar)
		}
	}
	return nextVar, nil
}

// ApplyLocksToAllVehicles rebuilds the preassignment from per-vehicle
// node lists. Inactive nodes are skipped; with closeRoutes set the
// locks freeze complete routes, otherwise only their order.
func (m *Model) ApplyLocksToAllVehicles(locks [][]Node, closeRoutes bool) error {
	m.preassignment = engine.NewAssignment()
	return m.RoutesToAssignment(locks, true, closeRoutes, m.preassignment)
}

// RouteCanBeUsedByVehicle reports whether every node on the route
// through startIndex admits vehicle in its vehicle variable.
func (m *Model) RouteCanBeUsedByVehicle(assignment *engine.Assignment, startIndex int64, vehicle int) bool {
	current := startIndex
	if m.IsStart(current) {
		current = m.Next(assignment, current)
	}
	steps := 0
	for !m.IsEnd(current) {
		if !m.vehicleVars[current].Contains(int64(vehicle)) {
			return false
		}
		next := m.Next(assignment, current)
		if next == current || steps > m.size {
			// An inactive node inside a route would loop forever.
			return false
		}
		current = next
		steps++
	}
	return true
}

// ReplaceUnusedVehicle moves the route of activeVehicle onto
// unusedVehicle inside compact, swapping the start transits and end
// cumuls of every dimension along with it.
func (m *Model) ReplaceUnusedVehicle(unusedVehicle, activeVehicle int, compact *engine.Assignment) bool {
	unusedStart := m.Start(unusedVehicle)
	unusedEnd := m.End(unusedVehicle)
	activeStart := m.Start(activeVehicle)
	activeEnd := m.End(activeVehicle)

	activeNext := compact.Value(m.nexts[activeStart])
	compact.SetValue(m.nexts[unusedStart], activeNext)
	compact.SetValue(m.nexts[activeStart], activeEnd)

	current := activeNext
	for !m.IsEnd(current) {
		compact.SetValue(m.vehicleVars[current], int64(unusedVehicle))
		next := m.Next(compact, current)
		if m.IsEnd(next) {
			compact.SetValue(m.nexts[current], unusedEnd)
		}
		current = next
	}

	for _, name := range m.dimensionOrder {
		d := m.dimensions[name]
		unusedTransit := d.transits[unusedStart]
		activeTransit := d.transits[activeStart]
		hasUnused := compact.HasValue(unusedTransit)
		hasActive := compact.HasValue(activeTransit)
		if hasUnused != hasActive {
			log.Warningf("The assignment contains the start transit of dimension %q for some vehicles, but not for all", name)
			return false
		}
		if hasUnused {
			oldUnused := compact.Value(unusedTransit)
			oldActive := compact.Value(activeTransit)
			compact.SetValue(unusedTransit, oldActive)
			compact.SetValue(activeTransit, oldUnused)
		}

		unusedCumul := d.cumuls[unusedEnd]
		activeCumul := d.cumuls[activeEnd]
		oldUnused := compact.Value(unusedCumul)
		oldActive := compact.Value(activeCumul)
		compact.SetValue(unusedCumul, oldActive)
		compact.SetValue(activeCumul, oldUnused)
	}
	return true
}

// CompactAssignment returns a copy of assignment where the routes are
// moved onto the lowest vehicle indices, so that the used vehicles form
// a prefix. Only equivalent vehicles swap: same start and end nodes,
// every node admitting the new vehicle, and homogeneous costs overall.
// Nil means no compatible rearrangement exists.
func (m *Model) CompactAssignment(assignment *engine.Assignment) *engine.Assignment {
	if assignment == nil {
		return nil
	}
	compact := assignment.Copy()
	if !m.homogeneous {
		log.Warning("The costs are not homogeneous, routes cannot be rearranged")
		return compact
	}
	for vehicle := 0; vehicle < m.vehicles-1; vehicle++ {
		if m.IsVehicleUsed(compact, vehicle) {
			continue
		}
		vehicleStart := m.Start(vehicle)
		vehicleEnd := m.End(vehicle)
		// Find the last vehicle that can swap routes with this one.
		swapVehicle := m.vehicles - 1
		moreRoutedVehicles := false
		for ; swapVehicle > vehicle; swapVehicle-- {
			if !m.IsVehicleUsed(compact, swapVehicle) {
				continue
			}
			moreRoutedVehicles = true
			swapStart := m.Start(swapVehicle)
			swapEnd := m.End(swapVehicle)
			if m.IndexToNode(vehicleStart) != m.IndexToNode(swapStart) ||
				m.IndexToNode(vehicleEnd) != m.IndexToNode(swapEnd) {
				continue
			}
			if m.RouteCanBeUsedByVehicle(compact, swapStart, vehicle) {
				break
			}
		}
		if swapVehicle == vehicle {
			if moreRoutedVehicles {
				// Leaving this vehicle empty would leave a gap in the
				// used prefix.
				log.Warningf("No vehicle that can be swapped with %d was found", vehicle)
				return nil
			}
			break
		}
		if !m.ReplaceUnusedVehicle(vehicle, swapVehicle, compact) {
			return nil
		}
	}
	if m.opts.CheckCompactAssignment && !m.checkAssignment(compact) {
		log.Warning("The compacted assignment is not a valid solution")
		return nil
	}
	return compact
}
