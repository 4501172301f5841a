package localsearch

import (
	log "github.com/golang/glog"
	"github.com/katalvlaran/lvroute/engine"
)

// Operator enumerates candidate moves around the committed solution.
// Synchronize installs a new committed solution and restarts the
// neighborhood; MakeNextNeighbor writes the next candidate into delta
// and reports false once the neighborhood is exhausted.
type Operator interface {
	Synchronize(a *engine.Assignment)
	MakeNextNeighbor(delta *Delta) bool
}

// PathDelegate builds one candidate move from the current base node
// positions of a PathOperator. Returning false skips the position.
type PathDelegate interface {
	MakeNeighbor(op *PathOperator, delta *Delta) bool
}

// PathConfig tunes how a PathOperator sweeps its base nodes.
type PathConfig struct {
	// Bases is the number of base nodes (at least 1).
	Bases int
	// SamePathAsPrevious ties a base to the path of its predecessor:
	// the base never leaves that path and carries instead of advancing
	// to the next one. Nil means all bases roam every path.
	SamePathAsPrevious func(base int) bool
	// RestartPosition yields the node a base rewinds to when an earlier
	// base moved. Nil means the start of the base's current path.
	RestartPosition func(op *PathOperator, base int) int64
	// OnSynchronize lets the delegate rebuild derived state (reverse
	// pointers and the like) from the freshly committed solution.
	OnSynchronize func(op *PathOperator)
	// AdvanceOuter steps an outer iteration dimension (such as the list
	// of inactive nodes) once the base sweep is exhausted. Returning
	// true restarts the sweep; nil or false ends the neighborhood.
	AdvanceOuter func() bool
}

// keepVehicle skips the companion vehicle write in setNext.
const keepVehicle = int64(-2)

// PathOperator drives base nodes over the committed paths like a
// mixed-radix counter: the last base advances fastest, and whenever a
// base advances every later base rewinds to its restart position. Node
// ids below len(nexts) are real nodes, ids in [len(nexts),
// len(nexts)+len(starts)) are path ends in path order.
type PathOperator struct {
	nexts       []*engine.IntVar
	vehicleVars []*engine.IntVar // value-space aligned; nil when homogeneous
	starts      []int64
	cfg         PathConfig
	delegate    PathDelegate

	numNexts  int64
	committed []int64
	pathOf    []int64
	inactive  []int64

	pathIndex []int
	node      []int64
	fresh     bool
}

// NewPathOperator builds a path operator over the successor variables.
// starts lists the path start nodes in path order; vehicleVars may be
// nil when nodes carry no path companion variable.
func NewPathOperator(nexts, vehicleVars []*engine.IntVar, starts []int64, cfg PathConfig, delegate PathDelegate) *PathOperator {
	if cfg.Bases < 1 {
		cfg.Bases = 1
	}
	op := &PathOperator{
		nexts:       nexts,
		vehicleVars: vehicleVars,
		starts:      starts,
		cfg:         cfg,
		delegate:    delegate,
		numNexts:    int64(len(nexts)),
		committed:   make([]int64, len(nexts)),
		pathOf:      make([]int64, len(nexts)+len(starts)),
		pathIndex:   make([]int, cfg.Bases),
		node:        make([]int64, cfg.Bases),
	}
	return op
}

// Synchronize installs the committed solution and rewinds the sweep.
func (op *PathOperator) Synchronize(a *engine.Assignment) {
	for i, v := range op.nexts {
		if a.HasValue(v) {
			op.committed[i] = a.Value(v)
		} else {
			op.committed[i] = int64(i)
		}
	}
	op.rebuildPaths()
	if op.cfg.OnSynchronize != nil {
		op.cfg.OnSynchronize(op)
	}
	op.resetPositions()
	op.fresh = true
}

// MakeNextNeighbor advances the sweep until the delegate produces a
// candidate or every position (and outer step) is spent.
func (op *PathOperator) MakeNextNeighbor(delta *Delta) bool {
	if op.numNexts == 0 || len(op.starts) == 0 {
		return false
	}
	for {
		if op.fresh {
			op.fresh = false
		} else if !op.incrementPosition() {
			if op.cfg.AdvanceOuter == nil || !op.cfg.AdvanceOuter() {
				return false
			}
			op.resetPositions()
		}
		delta.Reset()
		if op.delegate.MakeNeighbor(op, delta) {
			return true
		}
	}
}

func (op *PathOperator) rebuildPaths() {
	for i := range op.pathOf {
		op.pathOf[i] = -1
	}
	op.inactive = op.inactive[:0]
	for p, start := range op.starts {
		node := start
		for steps := int64(0); ; steps++ {
			if steps > op.numNexts {
				log.Fatalf("path %d does not terminate, successor loop at node %d", p, node)
			}
			if node >= op.numNexts {
				if node < int64(len(op.pathOf)) {
					op.pathOf[node] = int64(p)
				}
				break
			}
			op.pathOf[node] = int64(p)
			node = op.committed[node]
		}
	}
	for i := int64(0); i < op.numNexts; i++ {
		if op.committed[i] == i {
			op.inactive = append(op.inactive, i)
		}
	}
}

func (op *PathOperator) resetPositions() {
	for j := 0; j < op.cfg.Bases; j++ {
		op.pathIndex[j] = 0
		op.resetBase(j)
	}
}

func (op *PathOperator) resetBase(j int) {
	if op.samePath(j) {
		op.pathIndex[j] = op.pathIndex[j-1]
	}
	if op.cfg.RestartPosition != nil {
		op.node[j] = op.cfg.RestartPosition(op, j)
		return
	}
	op.node[j] = op.starts[op.pathIndex[j]]
}

func (op *PathOperator) samePath(j int) bool {
	return j > 0 && op.cfg.SamePathAsPrevious != nil && op.cfg.SamePathAsPrevious(j)
}

func (op *PathOperator) incrementPosition() bool {
	for i := op.cfg.Bases - 1; i >= 0; i-- {
		if op.advanceBase(i) {
			for j := i + 1; j < op.cfg.Bases; j++ {
				op.pathIndex[j] = 0
				op.resetBase(j)
			}
			return true
		}
	}
	return false
}

func (op *PathOperator) advanceBase(i int) bool {
	next := op.committed[op.node[i]]
	if next < op.numNexts {
		op.node[i] = next
		return true
	}
	// path exhausted for this base
	if op.samePath(i) {
		return false
	}
	if op.pathIndex[i]+1 < len(op.starts) {
		op.pathIndex[i]++
		op.node[i] = op.starts[op.pathIndex[i]]
		return true
	}
	return false
}

// BaseNode returns the current node of base i.
func (op *PathOperator) BaseNode(i int) int64 { return op.node[i] }

// StartNode returns the start of the path base i currently sweeps.
func (op *PathOperator) StartNode(i int) int64 { return op.starts[op.pathIndex[i]] }

// NumNexts returns the number of successor variables.
func (op *PathOperator) NumNexts() int64 { return op.numNexts }

// NumPaths returns the number of paths.
func (op *PathOperator) NumPaths() int { return len(op.starts) }

// PathStart returns the start node of path p.
func (op *PathOperator) PathStart(p int) int64 { return op.starts[p] }

// IsPathEnd reports whether node has no successor variable.
func (op *PathOperator) IsPathEnd(node int64) bool { return node >= op.numNexts }

// IsInactive reports whether node is committed to a self loop.
func (op *PathOperator) IsInactive(node int64) bool {
	return node < op.numNexts && op.committed[node] == node
}

// Inactive returns the committed inactive nodes in ascending order. The
// slice is owned by the operator and valid until the next Synchronize.
func (op *PathOperator) Inactive() []int64 { return op.inactive }

// CommittedNext returns the committed successor of node.
func (op *PathOperator) CommittedNext(node int64) int64 { return op.committed[node] }

// CommittedPath returns the committed path of node, -1 if inactive.
func (op *PathOperator) CommittedPath(node int64) int64 {
	if node < 0 || node >= int64(len(op.pathOf)) {
		return -1
	}
	return op.pathOf[node]
}

// Next reads the pending successor of node: the delta value when the
// move already rewired it, the committed one otherwise.
func (op *PathOperator) Next(delta *Delta, node int64) int64 {
	if v, ok := delta.Value(op.nexts[node]); ok {
		return v
	}
	return op.committed[node]
}

// Path reads the pending path of node, falling back to the committed
// one.
func (op *PathOperator) Path(delta *Delta, node int64) int64 {
	if op.vehicleVars != nil && node < int64(len(op.vehicleVars)) {
		if v, ok := delta.Value(op.vehicleVars[node]); ok {
			return v
		}
	}
	return op.CommittedPath(node)
}

// setNext rewires from -> to and tags from with the given path; pass
// keepVehicle to leave the companion variable untouched.
func (op *PathOperator) setNext(delta *Delta, from, to, path int64) {
	delta.SetValue(op.nexts[from], to)
	if op.vehicleVars != nil && path != keepVehicle {
		delta.SetValue(op.vehicleVars[from], path)
	}
}

// chain collects the pending chain (before, chainEnd], nil when
// chainEnd is not downstream of before.
func (op *PathOperator) chain(delta *Delta, before, chainEnd int64) []int64 {
	var nodes []int64
	cur := op.Next(delta, before)
	for steps := int64(0); steps <= op.numNexts; steps++ {
		if op.IsPathEnd(cur) {
			return nil
		}
		nodes = append(nodes, cur)
		if cur == chainEnd {
			return nodes
		}
		cur = op.Next(delta, cur)
	}
	return nil
}

// MakeActive splices node right after destination.
func (op *PathOperator) MakeActive(delta *Delta, node, destination int64) bool {
	if op.IsPathEnd(destination) || destination == node {
		return false
	}
	destPath := op.Path(delta, destination)
	op.setNext(delta, node, op.Next(delta, destination), destPath)
	op.setNext(delta, destination, node, destPath)
	return true
}

// MakeChainInactive turns every node of (before, chainEnd] into a self
// loop and closes the gap.
func (op *PathOperator) MakeChainInactive(delta *Delta, before, chainEnd int64) bool {
	if op.IsPathEnd(before) || op.IsPathEnd(chainEnd) || before == chainEnd {
		return false
	}
	nodes := op.chain(delta, before, chainEnd)
	if nodes == nil {
		return false
	}
	op.setNext(delta, before, op.Next(delta, chainEnd), keepVehicle)
	for _, n := range nodes {
		op.setNext(delta, n, n, -1)
	}
	return true
}

// MoveChain splices the chain (beforeChain, chainEnd] right after
// destination, retagging the moved nodes with destination's path.
func (op *PathOperator) MoveChain(delta *Delta, beforeChain, chainEnd, destination int64) bool {
	if op.IsPathEnd(beforeChain) || op.IsPathEnd(chainEnd) || op.IsPathEnd(destination) {
		return false
	}
	if beforeChain == chainEnd || beforeChain == destination {
		return false
	}
	nodes := op.chain(delta, beforeChain, chainEnd)
	if nodes == nil {
		return false
	}
	for _, n := range nodes {
		if n == destination {
			return false
		}
	}
	destPath := op.Path(delta, destination)
	afterChain := op.Next(delta, chainEnd)
	destNext := op.Next(delta, destination)
	op.setNext(delta, beforeChain, afterChain, keepVehicle)
	op.setNext(delta, destination, nodes[0], keepVehicle)
	for i, n := range nodes {
		next := destNext
		if i+1 < len(nodes) {
			next = nodes[i+1]
		}
		op.setNext(delta, n, next, destPath)
	}
	return true
}

// ReverseChain reverses the chain (before, chainEnd] in place.
func (op *PathOperator) ReverseChain(delta *Delta, before, chainEnd int64) bool {
	if op.IsPathEnd(before) || op.IsPathEnd(chainEnd) || before == chainEnd {
		return false
	}
	nodes := op.chain(delta, before, chainEnd)
	if len(nodes) < 2 {
		return false
	}
	after := op.Next(delta, chainEnd)
	op.setNext(delta, before, chainEnd, keepVehicle)
	for i := len(nodes) - 1; i > 0; i-- {
		op.setNext(delta, nodes[i], nodes[i-1], keepVehicle)
	}
	op.setNext(delta, nodes[0], after, keepVehicle)
	return true
}

// Concat chains operators: each is drained before the next one runs,
// and every Synchronize rewinds the sequence.
type Concat struct {
	ops     []Operator
	current int
}

// NewConcat concatenates operators in the given order.
func NewConcat(ops ...Operator) *Concat {
	return &Concat{ops: ops}
}

// Synchronize resynchronizes every child and rewinds to the first.
func (c *Concat) Synchronize(a *engine.Assignment) {
	for _, op := range c.ops {
		op.Synchronize(a)
	}
	c.current = 0
}

// MakeNextNeighbor pulls from the current child, moving on when it is
// exhausted.
func (c *Concat) MakeNextNeighbor(delta *Delta) bool {
	for c.current < len(c.ops) {
		if c.ops[c.current].MakeNextNeighbor(delta) {
			return true
		}
		c.current++
	}
	return false
}
