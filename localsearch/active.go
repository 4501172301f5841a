package localsearch

import "github.com/katalvlaran/lvroute/engine"

// Pair couples two nodes that must be served by the same path with the
// first one visited before the second.
type Pair struct {
	First  int64
	Second int64
}

// makeActiveOp inserts one inactive node after every possible position.
// The inactive list is the outer loop; the base sweeps insertion points
// for each candidate node.
type makeActiveOp struct {
	po  *PathOperator
	idx int
}

// NewMakeActive returns the node-activation neighborhood.
func NewMakeActive(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	d := &makeActiveOp{}
	d.po = NewPathOperator(nexts, vehicleVars, starts, PathConfig{
		Bases:         1,
		OnSynchronize: func(_ *PathOperator) { d.idx = 0 },
		AdvanceOuter: func() bool {
			d.idx++
			return d.idx < len(d.po.Inactive())
		},
	}, d)
	return d.po
}

func (d *makeActiveOp) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	inactive := op.Inactive()
	if d.idx >= len(inactive) {
		return false
	}
	return op.MakeActive(delta, inactive[d.idx], op.BaseNode(0))
}

// makeInactiveOp removes the node after the base from its path.
type makeInactiveOp struct{}

// NewMakeInactive returns the node-deactivation neighborhood.
func NewMakeInactive(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	return NewPathOperator(nexts, vehicleVars, starts, PathConfig{Bases: 1}, &makeInactiveOp{})
}

func (d *makeInactiveOp) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	b0 := op.BaseNode(0)
	out := op.Next(delta, b0)
	if op.IsPathEnd(out) {
		return false
	}
	return op.MakeChainInactive(delta, b0, out)
}

// swapActiveOp replaces the node after the base with an inactive one.
type swapActiveOp struct {
	po  *PathOperator
	idx int
}

// NewSwapActive returns the active-for-inactive swap neighborhood.
func NewSwapActive(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	d := &swapActiveOp{}
	d.po = NewPathOperator(nexts, vehicleVars, starts, PathConfig{
		Bases:         1,
		OnSynchronize: func(_ *PathOperator) { d.idx = 0 },
		AdvanceOuter: func() bool {
			d.idx++
			return d.idx < len(d.po.Inactive())
		},
	}, d)
	return d.po
}

func (d *swapActiveOp) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	inactive := op.Inactive()
	if d.idx >= len(inactive) {
		return false
	}
	b0 := op.BaseNode(0)
	out := op.Next(delta, b0)
	if op.IsPathEnd(out) {
		return false
	}
	return op.MakeChainInactive(delta, b0, out) &&
		op.MakeActive(delta, inactive[d.idx], b0)
}

// extendedSwapActiveOp deactivates the node after the first base and
// inserts an inactive node after the second base, decoupling the two
// positions.
type extendedSwapActiveOp struct {
	po  *PathOperator
	idx int
}

// NewExtendedSwapActive returns the decoupled swap neighborhood.
func NewExtendedSwapActive(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	d := &extendedSwapActiveOp{}
	d.po = NewPathOperator(nexts, vehicleVars, starts, PathConfig{
		Bases:         2,
		OnSynchronize: func(_ *PathOperator) { d.idx = 0 },
		AdvanceOuter: func() bool {
			d.idx++
			return d.idx < len(d.po.Inactive())
		},
	}, d)
	return d.po
}

func (d *extendedSwapActiveOp) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	inactive := op.Inactive()
	if d.idx >= len(inactive) {
		return false
	}
	b0, b1 := op.BaseNode(0), op.BaseNode(1)
	out := op.Next(delta, b0)
	if op.IsPathEnd(out) || b1 == out {
		return false
	}
	return op.MakeChainInactive(delta, b0, out) &&
		op.MakeActive(delta, inactive[d.idx], b1)
}

// pairActiveOp activates a whole inactive pair on one path. The second
// node is spliced first so the pair's precedence holds by construction:
// inserting the first node at or before the second's position can never
// put it downstream.
type pairActiveOp struct {
	po    *PathOperator
	pairs []Pair
	idx   int
}

// NewPairActive returns the pair-activation neighborhood.
func NewPairActive(nexts, vehicleVars []*engine.IntVar, starts []int64, pairs []Pair) Operator {
	d := &pairActiveOp{pairs: pairs}
	d.po = NewPathOperator(nexts, vehicleVars, starts, PathConfig{
		Bases:              2,
		SamePathAsPrevious: func(base int) bool { return base == 1 },
		RestartPosition: func(op *PathOperator, base int) int64 {
			if base == 1 {
				return op.BaseNode(0)
			}
			return op.StartNode(base)
		},
		OnSynchronize: func(_ *PathOperator) {
			d.idx = 0
			d.skipActivePairs()
		},
		AdvanceOuter: func() bool {
			d.idx++
			d.skipActivePairs()
			return d.idx < len(d.pairs)
		},
	}, d)
	return d.po
}

// skipActivePairs advances past pairs with at least one performed node.
func (d *pairActiveOp) skipActivePairs() {
	for d.idx < len(d.pairs) {
		p := d.pairs[d.idx]
		if d.po.IsInactive(p.First) && d.po.IsInactive(p.Second) {
			return
		}
		d.idx++
	}
}

func (d *pairActiveOp) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	if d.idx >= len(d.pairs) {
		return false
	}
	p := d.pairs[d.idx]
	return op.MakeActive(delta, p.Second, op.BaseNode(1)) &&
		op.MakeActive(delta, p.First, op.BaseNode(0))
}

// pairRelocateOp moves both nodes of a performed pair to new positions
// on the second base's path. Reverse pointers are rebuilt from the
// committed solution on every synchronize.
type pairRelocateOp struct {
	po      *PathOperator
	mate    []int64
	isFirst []bool
	prevs   []int64
}

// NewPairRelocate returns the pair-relocation neighborhood.
func NewPairRelocate(nexts, vehicleVars []*engine.IntVar, starts []int64, pairs []Pair) Operator {
	size := int64(len(nexts) + len(starts))
	d := &pairRelocateOp{
		mate:    make([]int64, size),
		isFirst: make([]bool, size),
		prevs:   make([]int64, size),
	}
	for i := range d.mate {
		d.mate[i] = -1
	}
	for _, p := range pairs {
		if p.First < size && p.Second < size {
			d.mate[p.First] = p.Second
			d.mate[p.Second] = p.First
			d.isFirst[p.First] = true
		}
	}
	d.po = NewPathOperator(nexts, vehicleVars, starts, PathConfig{
		Bases:              3,
		SamePathAsPrevious: func(base int) bool { return base == 2 },
		RestartPosition: func(op *PathOperator, base int) int64 {
			switch base {
			case 2:
				// the relocated first node may go anywhere on the path,
				// the second one only downstream of the first's spot
				if !d.isFirst[op.BaseNode(0)] && op.StartNode(1) == op.StartNode(2) {
					return op.BaseNode(1)
				}
				return op.StartNode(base)
			default:
				return op.StartNode(base)
			}
		},
		OnSynchronize: func(op *PathOperator) { d.rebuildPrevs(op) },
	}, d)
	return d.po
}

func (d *pairRelocateOp) rebuildPrevs(op *PathOperator) {
	for i := range d.prevs {
		d.prevs[i] = -1
	}
	for i := int64(0); i < op.NumNexts(); i++ {
		next := op.CommittedNext(i)
		if next != i && next < int64(len(d.prevs)) {
			d.prevs[next] = i
		}
	}
}

func (d *pairRelocateOp) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	node := op.BaseNode(0)
	if node >= int64(len(d.mate)) {
		return false
	}
	sibling := d.mate[node]
	if sibling < 0 {
		return false
	}
	prev := d.prevs[node]
	if prev < 0 {
		return false
	}
	prevSibling := d.prevs[sibling]
	if prevSibling < 0 {
		return false
	}
	return op.MoveChain(delta, prevSibling, sibling, op.BaseNode(1)) &&
		op.MoveChain(delta, prev, node, op.BaseNode(2))
}
