package routing

import (
	"fmt"
	"sort"

	"github.com/katalvlaran/lvroute/engine"
)

// SetCost prices every vehicle's arcs with evaluator. Whether the model
// then treats the fleet as homogeneous (dropping vehicle variables from
// cost propagation) follows SearchOptions.HomogeneousCosts.
func (m *Model) SetCost(evaluator NodeEvaluator) error {
	if err := m.requireOpen("set costs"); err != nil {
		return err
	}
	if m.vehicles == 0 {
		return fmt.Errorf("%w: cannot set costs on a model without vehicles", engine.ErrContract)
	}
	m.homogeneous = m.opts.HomogeneousCosts
	for i := 0; i < m.vehicles; i++ {
		if err := m.setVehicleCost(i, evaluator); err != nil {
			return err
		}
	}
	return nil
}

// SetVehicleCost prices one vehicle's arcs with evaluator and marks the
// fleet heterogeneous. A vehicle's evaluator can be set only once.
func (m *Model) SetVehicleCost(vehicle int, evaluator NodeEvaluator) error {
	if err := m.requireOpen("set costs"); err != nil {
		return err
	}
	m.homogeneous = false
	return m.setVehicleCost(vehicle, evaluator)
}

// setVehicleCost assigns vehicle to a cost class, reusing the class of
// any vehicle already configured with the same evaluator so identical
// fleets collapse to a single class.
func (m *Model) setVehicleCost(vehicle int, evaluator NodeEvaluator) error {
	if evaluator == nil {
		return fmt.Errorf("%w: nil cost evaluator", engine.ErrContract)
	}
	if vehicle < 0 || vehicle >= m.vehicles {
		return fmt.Errorf("%w: vehicle %d out of range [0, %d)", engine.ErrContract, vehicle, m.vehicles)
	}
	if m.vehicleCostClass[vehicle] != Unassigned {
		return fmt.Errorf("%w: vehicle cost already set for %d", engine.ErrContract, vehicle)
	}
	sharing := m.classVehicles[evaluator]
	if len(sharing) == 0 {
		m.vehicleCostClass[vehicle] = len(m.costClasses)
		m.costClasses = append(m.costClasses, m.maybeCache(evaluator))
	} else {
		m.vehicleCostClass[vehicle] = m.vehicleCostClass[sharing[0]]
	}
	m.classVehicles[evaluator] = append(sharing, vehicle)
	return nil
}

// maybeCache wraps evaluator in a dense memo table when caching is
// enabled and the model is small enough for the table to pay off.
func (m *Model) maybeCache(evaluator NodeEvaluator) NodeEvaluator {
	if m.opts.CacheCostEvaluators && int64(m.nodes) <= m.opts.MaxCacheSize {
		return NewCachedEvaluator(evaluator, m.nodes)
	}
	return evaluator
}

// SetFixedCost charges every vehicle cost for leaving its start, paid
// only when the route serves at least one node.
func (m *Model) SetFixedCost(cost int64) {
	for i := 0; i < m.vehicles; i++ {
		m.fixedCosts[i] = cost
	}
}

// FixedCost returns the fixed cost of the first vehicle.
func (m *Model) FixedCost() int64 { return m.VehicleFixedCost(0) }

// SetVehicleFixedCost charges one vehicle cost for running a non-empty
// route.
func (m *Model) SetVehicleFixedCost(vehicle int, cost int64) error {
	if vehicle < 0 || vehicle >= m.vehicles {
		return fmt.Errorf("%w: vehicle %d out of range [0, %d)", engine.ErrContract, vehicle, m.vehicles)
	}
	m.fixedCosts[vehicle] = cost
	return nil
}

// VehicleFixedCost returns the fixed cost charged when vehicle serves
// at least one node.
func (m *Model) VehicleFixedCost(vehicle int) int64 {
	if vehicle < 0 || vehicle >= m.vehicles {
		return 0
	}
	return m.fixedCosts[vehicle]
}

// classArcCost prices the arc between two indices for one cost class.
// The fixed cost of the route's vehicle is folded into the first arc
// out of the start, and a start-to-end arc is free so unused vehicles
// cost nothing.
func (m *Model) classArcCost(from, to int64, class int) int64 {
	if class < 0 || class >= len(m.costClasses) {
		return 0
	}
	evaluator := m.costClasses[class]
	switch {
	case !m.IsStart(from):
		return evaluator.Value(m.IndexToNode(from), m.IndexToNode(to))
	case !m.IsEnd(to):
		return evaluator.Value(m.IndexToNode(from), m.IndexToNode(to)) +
			m.fixedCosts[m.indexToVehicle[from]]
	default:
		return 0
	}
}

// ArcCost prices the arc (from, to) as travelled by vehicle. Self-loops
// and an unassigned vehicle (-1) cost nothing.
func (m *Model) ArcCost(from, to, vehicle int64) int64 {
	if from == to || vehicle < 0 || vehicle >= int64(len(m.vehicleCostClass)) {
		return 0
	}
	return m.classArcCost(from, to, m.vehicleCostClass[vehicle])
}

// HomogeneousCost prices the arc (from, to) as travelled by the first
// vehicle, the single price of a homogeneous fleet.
func (m *Model) HomogeneousCost(from, to int64) int64 {
	return m.homogeneousCost(from, to)
}

// homogeneousCost prices an arc assuming all vehicles share the first
// vehicle's cost class.
func (m *Model) homogeneousCost(from, to int64) int64 {
	return m.ArcCost(from, to, 0)
}

// FirstSolutionCost ranks the arc (from, to) for the construction
// heuristics. Arcs into a vehicle end are priced at infinity so open
// paths pick up every remaining node before closing.
func (m *Model) FirstSolutionCost(from, to int64) int64 {
	if !m.IsEnd(to) {
		return m.homogeneousCost(from, to)
	}
	return costInfinity
}

// vehicleClass describes one equivalence class of vehicles: same start
// node, same end node, same cost class. The savings and sweep builders
// construct routes per class rather than per vehicle.
type vehicleClass struct {
	startNode  Node
	endNode    Node
	costClass  int
	startDepot int64
	endDepot   int64
}

// vehicleClasses collapses the fleet into its distinct classes, ordered
// lexicographically by start node, end node and cost class.
func (m *Model) vehicleClasses() []vehicleClass {
	if m.vehicles == 0 {
		return nil
	}
	all := make([]vehicleClass, m.vehicles)
	for v := 0; v < m.vehicles; v++ {
		all[v] = vehicleClass{
			startNode: m.IndexToNode(m.Start(v)),
			endNode:   m.IndexToNode(m.End(v)),
			costClass: m.vehicleCostClass[v],
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].startNode != all[j].startNode {
			return all[i].startNode < all[j].startNode
		}
		if all[i].endNode != all[j].endNode {
			return all[i].endNode < all[j].endNode
		}
		return all[i].costClass < all[j].costClass
	})
	classes := all[:1]
	for _, c := range all[1:] {
		last := classes[len(classes)-1]
		if c.startNode != last.startNode || c.endNode != last.endNode || c.costClass != last.costClass {
			classes = append(classes, c)
		}
	}
	for i := range classes {
		classes[i].startDepot = m.NodeToIndex(classes[i].startNode)
		classes[i].endDepot = m.NodeToIndex(classes[i].endNode)
		if classes[i].endDepot == Unassigned {
			// The end node is not visited mid-route, so it has no base
			// index. Use the end index of a vehicle of this class.
			for v := 0; v < m.vehicles; v++ {
				if m.IndexToNode(m.starts[v]) == classes[i].startNode &&
					m.IndexToNode(m.ends[v]) == classes[i].endNode &&
					m.vehicleCostClass[v] == classes[i].costClass {
					classes[i].endDepot = m.ends[v]
					break
				}
			}
		}
	}
	return classes
}
