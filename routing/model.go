package routing

import (
	"fmt"
	"math"

	log "github.com/golang/glog"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/localsearch"
)

const noDisjunction = -1

// disjunction groups successor indices of which at most one may be
// active. penalty is charged to the objective when none is; a negative
// penalty makes serving one member mandatory.
type disjunction struct {
	members []int64
	penalty int64
}

// Model is a vehicle routing problem under construction and, once
// closed, the constraint program solving it. Construction methods
// (costs, dimensions, disjunctions, pairs, locks) must all run before
// the model is closed; Solve and the assignment bridges close it on
// first use.
//
// Visits are successor indices in [0, Size()+vehicles): one index per
// node occurrence plus one end index per vehicle. Nodes shared by
// several vehicle starts get one extra index per additional vehicle,
// so a route is always start(v) -> ... -> end(v) with no aliasing
// between vehicles.
type Model struct {
	solver *engine.Solver
	opts   SearchOptions

	nodes    int
	vehicles int
	size     int

	starts []int64
	ends   []int64

	indexToNode    []Node
	nodeToIndex    []int64
	indexToVehicle []int

	nexts       []*engine.IntVar
	vehicleVars []*engine.IntVar
	activeVars  []*engine.IntVar
	cost        *engine.IntVar

	// Cost classes. classVehicles is keyed by the raw evaluator so two
	// vehicles configured with the same evaluator share one class;
	// costClasses holds the per-class evaluator after optional caching.
	costClasses      []NodeEvaluator
	classVehicles    map[NodeEvaluator][]int
	vehicleCostClass []int
	fixedCosts       []int64
	homogeneous      bool

	disjunctions       []disjunction
	indexToDisjunction []int

	pairs []localsearch.Pair

	dimensions     map[string]*dimension
	dimensionOrder []string

	preassignment *engine.Assignment
	extraVars     []*engine.IntVar
	extraOps      []localsearch.Operator

	firstSolutionEvaluator localsearch.ArcCost
	sweep                  *SweepArranger

	template *engine.Assignment
	best     *engine.Assignment

	depotSet bool
	closed   bool
	status   Status

	// rootErr records the first failure of a root-level domain
	// mutation. The model is then proven infeasible before any search;
	// Solve reports Fail without descending.
	rootErr error
}

// NewModel creates a model with nodes locations and vehicles routes, all
// sharing one depot node to be fixed later via SetDepot or SetStartEnd.
// Negative counts return an error wrapping engine.ErrContract.
func NewModel(nodes, vehicles int, opts SearchOptions) (*Model, error) {
	if nodes < 0 || vehicles < 0 {
		return nil, fmt.Errorf("%w: model needs non-negative counts, got %d nodes, %d vehicles", engine.ErrContract, nodes, vehicles)
	}
	startEndCount := 1
	if vehicles == 0 {
		startEndCount = 0
	}
	m := newModel(nodes, vehicles, startEndCount, opts)
	if vehicles == 0 {
		// Nothing to anchor; the index mapping is the identity.
		if err := m.setStartEnd(nil, nil); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewModelStartsEnds creates a model whose vehicle v runs from node
// starts[v] to node ends[v]. Both slices must have one entry per
// vehicle; nodes out of range return an error wrapping
// engine.ErrContract.
func NewModelStartsEnds(nodes, vehicles int, starts, ends []Node, opts SearchOptions) (*Model, error) {
	if nodes < 0 || vehicles < 0 {
		return nil, fmt.Errorf("%w: model needs non-negative counts, got %d nodes, %d vehicles", engine.ErrContract, nodes, vehicles)
	}
	if len(starts) != vehicles || len(ends) != vehicles {
		return nil, fmt.Errorf("%w: want %d start and end nodes, got %d and %d", engine.ErrContract, vehicles, len(starts), len(ends))
	}
	m := newModel(nodes, vehicles, countDistinct(starts, ends), opts)
	if err := m.setStartEnd(starts, ends); err != nil {
		return nil, err
	}
	return m, nil
}

// countDistinct counts the distinct nodes among the vehicle starts and
// ends. Each such node occupies exactly one base index; the remaining
// occurrences get dedicated indices, which is what sizes the model.
func countDistinct(starts, ends []Node) int {
	seen := make(map[Node]bool, len(starts)+len(ends))
	for _, n := range starts {
		seen[n] = true
	}
	for _, n := range ends {
		seen[n] = true
	}
	return len(seen)
}

func newModel(nodes, vehicles, startEndCount int, opts SearchOptions) *Model {
	m := &Model{
		solver:           engine.NewSolver(),
		opts:             opts,
		nodes:            nodes,
		vehicles:         vehicles,
		size:             nodes + vehicles - startEndCount,
		starts:           make([]int64, vehicles),
		ends:             make([]int64, vehicles),
		classVehicles:    make(map[NodeEvaluator][]int),
		vehicleCostClass: make([]int, vehicles),
		fixedCosts:       make([]int64, vehicles),
		homogeneous:      opts.HomogeneousCosts,
		dimensions:       make(map[string]*dimension),
		status:           NotSolved,
	}
	for i := range m.vehicleCostClass {
		m.vehicleCostClass[i] = Unassigned
	}
	m.initialize()
	return m
}

// initialize creates the variable arrays. The all-different constraint
// on the next variables is posted right away; everything else waits for
// the depot (SetStartEnd) and for CloseModel.
func (m *Model) initialize() {
	size := m.size
	m.nexts = make([]*engine.IntVar, size)
	for i := range m.nexts {
		m.nexts[i] = m.newVar(0, int64(size+m.vehicles-1), fmt.Sprintf("Nexts%d", i))
	}
	m.solver.Post(engine.NewAllDifferent(m.nexts))
	m.indexToDisjunction = make([]int, size)
	for i := range m.indexToDisjunction {
		m.indexToDisjunction[i] = noDisjunction
	}
	// vehicleVars[i] is bound to -1 whenever index i is inactive.
	m.vehicleVars = make([]*engine.IntVar, size+m.vehicles)
	for i := range m.vehicleVars {
		m.vehicleVars[i] = m.newVar(-1, int64(m.vehicles-1), fmt.Sprintf("Vehicles%d", i))
	}
	m.activeVars = make([]*engine.IntVar, size)
	for i := range m.activeVars {
		m.activeVars[i] = m.solver.NewBoolVar(fmt.Sprintf("Active%d", i))
	}
	m.preassignment = engine.NewAssignment()
}

// fail records the first root-level failure. Subsequent Solve calls
// report Fail immediately.
func (m *Model) fail(err error) {
	if m.rootErr == nil {
		m.rootErr = err
	}
}

// rootBind fixes v to value at the root of the search tree.
func (m *Model) rootBind(v *engine.IntVar, value int64) {
	if err := v.SetValue(value); err != nil {
		m.fail(err)
	}
}

// rootRemove removes value from v at the root of the search tree.
func (m *Model) rootRemove(v *engine.IntVar, value int64) {
	if err := v.RemoveValue(value); err != nil {
		m.fail(err)
	}
}

// SetDepot makes every vehicle start and end at depot. It is a no-op
// with a warning when start/end nodes were already fixed.
func (m *Model) SetDepot(depot Node) error {
	starts := make([]Node, m.vehicles)
	ends := make([]Node, m.vehicles)
	for i := range starts {
		starts[i] = depot
		ends[i] = depot
	}
	return m.SetStartEnd(starts, ends)
}

// SetStartEnd fixes vehicle v to run from node starts[v] to node
// ends[v]. It may be called once; later calls warn and keep the first
// mapping. The distinct start/end nodes must match the count the model
// was sized with at construction.
func (m *Model) SetStartEnd(starts, ends []Node) error {
	if m.depotSet {
		log.Warning("A depot has already been specified, ignoring new ones")
		return nil
	}
	if len(starts) != m.vehicles || len(ends) != m.vehicles {
		return fmt.Errorf("%w: want %d start and end nodes, got %d and %d", engine.ErrContract, m.vehicles, len(starts), len(ends))
	}
	return m.setStartEnd(starts, ends)
}

func (m *Model) setStartEnd(starts, ends []Node) error {
	size := m.size
	startSet := make(map[Node]bool, len(starts))
	endSet := make(map[Node]bool, len(ends))
	for i := 0; i < m.vehicles; i++ {
		if starts[i] < 0 || int(starts[i]) >= m.nodes {
			return fmt.Errorf("%w: start node %d of vehicle %d out of range [0, %d)", engine.ErrContract, starts[i], i, m.nodes)
		}
		if ends[i] < 0 || int(ends[i]) >= m.nodes {
			return fmt.Errorf("%w: end node %d of vehicle %d out of range [0, %d)", engine.ErrContract, ends[i], i, m.nodes)
		}
		startSet[starts[i]] = true
		endSet[ends[i]] = true
	}
	if distinct := countDistinct(starts, ends); m.nodes+m.vehicles-distinct != size {
		return fmt.Errorf("%w: start/end nodes name %d distinct nodes, the model was sized for %d", engine.ErrContract, distinct, m.nodes+m.vehicles-size)
	}
	m.indexToNode = make([]Node, size+m.vehicles)
	m.nodeToIndex = make([]int64, m.nodes)
	for i := range m.nodeToIndex {
		m.nodeToIndex[i] = Unassigned
	}
	// Base indices: every node except pure end depots, in node order.
	index := int64(0)
	for n := Node(0); int(n) < m.nodes; n++ {
		if startSet[n] || !endSet[n] {
			m.indexToNode[index] = n
			m.nodeToIndex[n] = index
			index++
		}
	}
	// Vehicle starts: the first vehicle on a start node keeps the base
	// index, later ones get fresh indices.
	m.indexToVehicle = make([]int, size+m.vehicles)
	for i := range m.indexToVehicle {
		m.indexToVehicle[i] = Unassigned
	}
	claimed := make(map[Node]bool, m.vehicles)
	for i := 0; i < m.vehicles; i++ {
		start := starts[i]
		if !claimed[start] {
			claimed[start] = true
			m.starts[i] = m.nodeToIndex[start]
			m.indexToVehicle[m.starts[i]] = i
		} else {
			m.starts[i] = index
			m.indexToNode[index] = start
			m.indexToVehicle[index] = i
			index++
		}
	}
	// Vehicle ends always get fresh indices at or past Size().
	for i := 0; i < m.vehicles; i++ {
		m.indexToNode[index] = ends[i]
		m.ends[i] = index
		m.indexToVehicle[index] = i
		index++
	}
	for i := 0; i < size; i++ {
		// Nothing routes into a start; a node feeds its own active bit.
		for j := 0; j < m.vehicles; j++ {
			m.rootRemove(m.nexts[i], m.starts[j])
		}
		m.solver.Post(engine.NewIsDifferentCst(m.nexts[i], int64(i), m.activeVars[i]))
	}
	m.depotSet = true

	if log.V(1) {
		log.Infof("routing model: %d nodes, %d vehicles, %d indices", m.nodes, m.vehicles, size+m.vehicles)
	}
	if log.V(2) {
		for i, n := range m.indexToNode {
			log.Infof("index %d -> node %d", i, n)
		}
		for n, i := range m.nodeToIndex {
			log.Infof("node %d -> index %d", n, i)
		}
	}
	return nil
}

// checkDepot installs node 0 as depot when none was specified, so the
// lazy paths (dimensions, CloseModel) never see an unanchored model.
func (m *Model) checkDepot() {
	if m.depotSet {
		return
	}
	log.Warning("A depot must be specified, setting one at node 0")
	if err := m.SetDepot(0); err != nil {
		m.fail(err)
	}
}

// Size returns the number of next variables: one per node occurrence,
// excluding the per-vehicle end indices.
func (m *Model) Size() int { return m.size }

// Nodes returns the number of physical locations.
func (m *Model) Nodes() int { return m.nodes }

// Vehicles returns the number of routes.
func (m *Model) Vehicles() int { return m.vehicles }

// Start returns the index vehicle starts its route at.
func (m *Model) Start(vehicle int) int64 { return m.starts[vehicle] }

// End returns the index vehicle finishes its route at.
func (m *Model) End(vehicle int) int64 { return m.ends[vehicle] }

// Depot returns the start index of the first vehicle, or -1 when the
// model has no vehicles.
func (m *Model) Depot() int64 {
	if m.vehicles == 0 {
		return Unassigned
	}
	return m.Start(0)
}

// IsStart reports whether index begins some vehicle's route.
func (m *Model) IsStart(index int64) bool {
	return index >= 0 && !m.IsEnd(index) && m.indexToVehicle[index] != Unassigned
}

// IsEnd reports whether index finishes some vehicle's route.
func (m *Model) IsEnd(index int64) bool { return index >= int64(m.size) }

// IndexToNode maps a successor index back to its node.
func (m *Model) IndexToNode(index int64) Node {
	if index < 0 || index >= int64(len(m.indexToNode)) {
		return Unassigned
	}
	return m.indexToNode[index]
}

// NodeToIndex maps a node to its base successor index, or Unassigned for
// nodes only reachable through vehicle-specific indices (duplicate
// starts, pure end depots) and before the depot is set.
func (m *Model) NodeToIndex(node Node) int64 {
	if !m.depotSet || node < 0 || int(node) >= m.nodes {
		return Unassigned
	}
	return m.nodeToIndex[node]
}

// NextVar returns the successor variable of index, which must be below
// Size().
func (m *Model) NextVar(index int64) *engine.IntVar { return m.nexts[index] }

// VehicleVar returns the vehicle variable of index.
func (m *Model) VehicleVar(index int64) *engine.IntVar { return m.vehicleVars[index] }

// ActiveVar returns the activity variable of index, which must be below
// Size().
func (m *Model) ActiveVar(index int64) *engine.IntVar { return m.activeVars[index] }

// CostVar returns the objective variable. It is nil until the model is
// closed.
func (m *Model) CostVar() *engine.IntVar { return m.cost }

// Solver exposes the underlying constraint solver, letting callers post
// side constraints before the model is closed.
func (m *Model) Solver() *engine.Solver { return m.solver }

// Preassignment returns the container of root decisions (locks) applied
// before every search.
func (m *Model) Preassignment() *engine.Assignment { return m.preassignment }

// Status reports the outcome of the latest solve.
func (m *Model) Status() Status { return m.status }

// Closed reports whether the model has been closed for construction.
func (m *Model) Closed() bool { return m.closed }

// requireOpen guards construction methods.
func (m *Model) requireOpen(what string) error {
	if m.closed {
		return fmt.Errorf("%w: cannot %s on a closed model", engine.ErrContract, what)
	}
	return nil
}

// mapNode resolves a node to its base index for construction methods,
// requiring the depot to be known first.
func (m *Model) mapNode(node Node, what string) (int64, error) {
	if !m.depotSet {
		return 0, fmt.Errorf("%w: %s referenced node %d before a depot was set", engine.ErrContract, what, node)
	}
	if node < 0 || int(node) >= m.nodes {
		return 0, fmt.Errorf("%w: %s node %d out of range [0, %d)", engine.ErrContract, what, node, m.nodes)
	}
	index := m.nodeToIndex[node]
	if index == Unassigned {
		return 0, fmt.Errorf("%w: %s node %d has no index of its own", engine.ErrContract, what, node)
	}
	return index, nil
}

// AddDisjunction makes the given nodes mutually exclusive: at most one
// of them may be served, and exactly one must be. Use
// AddDisjunctionWithPenalty to allow serving none at a price.
func (m *Model) AddDisjunction(nodes []Node) error {
	return m.addDisjunction(nodes, Unassigned)
}

// AddDisjunctionWithPenalty makes the given nodes mutually exclusive
// and optional: serving none of them adds penalty to the objective.
// The penalty must be non-negative.
func (m *Model) AddDisjunctionWithPenalty(nodes []Node, penalty int64) error {
	if penalty < 0 {
		return fmt.Errorf("%w: disjunction penalty must be non-negative, got %d", engine.ErrContract, penalty)
	}
	return m.addDisjunction(nodes, penalty)
}

func (m *Model) addDisjunction(nodes []Node, penalty int64) error {
	if err := m.requireOpen("add a disjunction"); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: empty disjunction", engine.ErrContract)
	}
	members := make([]int64, len(nodes))
	for i, n := range nodes {
		index, err := m.mapNode(n, "disjunction")
		if err != nil {
			return err
		}
		if index >= int64(m.size) {
			return fmt.Errorf("%w: disjunction node %d is a vehicle end", engine.ErrContract, n)
		}
		members[i] = index
	}
	d := len(m.disjunctions)
	m.disjunctions = append(m.disjunctions, disjunction{members: members, penalty: penalty})
	// A node joining several disjunctions keeps only the last one.
	for _, index := range members {
		m.indexToDisjunction[index] = d
	}
	return nil
}

// AddPickupAndDelivery requires delivery to be served after pickup on
// the same route whenever both are served.
func (m *Model) AddPickupAndDelivery(pickup, delivery Node) error {
	if err := m.requireOpen("add a pickup/delivery pair"); err != nil {
		return err
	}
	first, err := m.mapNode(pickup, "pickup")
	if err != nil {
		return err
	}
	second, err := m.mapNode(delivery, "delivery")
	if err != nil {
		return err
	}
	m.pairs = append(m.pairs, localsearch.Pair{First: first, Second: second})
	return nil
}

// addAllActive forces every index to be served. Called at close time for
// models without disjunctions, where dropping nodes is never allowed.
func (m *Model) addAllActive() {
	for i := 0; i < m.size; i++ {
		if m.activeVars[i].Max() != 0 {
			m.rootBind(m.activeVars[i], 1)
		}
	}
}

// AddToAssignment includes v in solutions returned by Solve. Typical use
// is reading back auxiliary variables posted through Solver.
func (m *Model) AddToAssignment(v *engine.IntVar) {
	m.extraVars = append(m.extraVars, v)
}

// AddLocalSearchOperator prepends op to the neighborhood stack used
// during the improvement phase.
func (m *Model) AddLocalSearchOperator(op localsearch.Operator) {
	m.extraOps = append(m.extraOps, op)
}

// SetFirstSolutionEvaluator installs the arc ranking used by the
// EvaluatorStrategy first-solution heuristic. The evaluator is called
// with successor indices, not nodes.
func (m *Model) SetFirstSolutionEvaluator(eval localsearch.ArcCost) {
	m.firstSolutionEvaluator = eval
}

// SetSweepArranger installs the node geometry driving the Sweep
// first-solution strategy.
func (m *Model) SetSweepArranger(arranger *SweepArranger) {
	m.sweep = arranger
}

const costInfinity = int64(math.MaxInt64)
