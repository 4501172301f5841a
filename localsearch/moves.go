package localsearch

import "github.com/katalvlaran/lvroute/engine"

// twoOpt reverses the chain between two nodes of one path. Removing
// arcs (a, a+) and (b, b+) and reconnecting a->b and a+->b+ is the
// classic crossing-elimination move.
type twoOpt struct{}

// NewTwoOpt returns the 2-opt neighborhood.
func NewTwoOpt(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	d := &twoOpt{}
	return NewPathOperator(nexts, vehicleVars, starts, PathConfig{
		Bases:              2,
		SamePathAsPrevious: func(base int) bool { return base == 1 },
		RestartPosition: func(op *PathOperator, base int) int64 {
			if base == 1 {
				return op.BaseNode(0)
			}
			return op.StartNode(base)
		},
	}, d)
}

func (d *twoOpt) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	b0, b1 := op.BaseNode(0), op.BaseNode(1)
	if b0 == b1 {
		return false
	}
	return op.ReverseChain(delta, b0, b1)
}

// relocate moves the chain of chainLength nodes following the first
// base right after the second base. With singlePath the insertion point
// stays on the chain's own path (the or-opt family); otherwise it roams
// every path.
type relocate struct {
	chainLength int64
}

// NewRelocate returns the relocate neighborhood for chains of the given
// length.
func NewRelocate(nexts, vehicleVars []*engine.IntVar, starts []int64, chainLength int64, singlePath bool) Operator {
	d := &relocate{chainLength: chainLength}
	cfg := PathConfig{Bases: 2}
	if singlePath {
		cfg.SamePathAsPrevious = func(base int) bool { return base == 1 }
	}
	return NewPathOperator(nexts, vehicleVars, starts, cfg, d)
}

// NewOrOpt returns the or-opt neighborhood: chains of one, two and
// three nodes moved within their own path.
func NewOrOpt(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	return NewConcat(
		NewRelocate(nexts, vehicleVars, starts, 1, true),
		NewRelocate(nexts, vehicleVars, starts, 2, true),
		NewRelocate(nexts, vehicleVars, starts, 3, true),
	)
}

func (d *relocate) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	before := op.BaseNode(0)
	chainEnd := before
	for i := int64(0); i < d.chainLength; i++ {
		chainEnd = op.CommittedNext(chainEnd)
		if op.IsPathEnd(chainEnd) {
			return false
		}
	}
	return op.MoveChain(delta, before, chainEnd, op.BaseNode(1))
}

// exchange swaps the nodes following the two bases, within or across
// paths.
type exchange struct{}

// NewExchange returns the node exchange neighborhood.
func NewExchange(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	return NewPathOperator(nexts, vehicleVars, starts, PathConfig{Bases: 2}, &exchange{})
}

func (d *exchange) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	b0, b1 := op.BaseNode(0), op.BaseNode(1)
	u := op.Next(delta, b0)
	v := op.Next(delta, b1)
	if u == v || op.IsPathEnd(u) || op.IsPathEnd(v) {
		return false
	}
	pathU := op.Path(delta, b1)
	pathV := op.Path(delta, b0)
	nu := op.Next(delta, u)
	nv := op.Next(delta, v)
	switch {
	case v == nu: // u directly before v
		op.setNext(delta, b0, v, keepVehicle)
		op.setNext(delta, v, u, pathV)
		op.setNext(delta, u, nv, pathU)
	case u == nv: // v directly before u
		op.setNext(delta, b1, u, keepVehicle)
		op.setNext(delta, u, v, pathU)
		op.setNext(delta, v, nu, pathV)
	default:
		op.setNext(delta, b0, v, keepVehicle)
		op.setNext(delta, v, nu, pathV)
		op.setNext(delta, b1, u, keepVehicle)
		op.setNext(delta, u, nv, pathU)
	}
	return true
}

// cross trades the tails of two different paths. Each end sentinel
// stays with its own path; only the customer chains swap.
type cross struct{}

// NewCross returns the tail-exchange neighborhood.
func NewCross(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	return NewPathOperator(nexts, vehicleVars, starts, PathConfig{Bases: 2}, &cross{})
}

func (d *cross) MakeNeighbor(op *PathOperator, delta *Delta) bool {
	if op.StartNode(0) == op.StartNode(1) {
		return false
	}
	b0, b1 := op.BaseNode(0), op.BaseNode(1)
	path0 := op.Path(delta, b0)
	path1 := op.Path(delta, b1)
	chain0, end0 := d.tail(op, delta, b0)
	chain1, end1 := d.tail(op, delta, b1)
	if len(chain0) == 0 && len(chain1) == 0 {
		return false
	}
	d.graft(op, delta, b0, chain1, end0, path0)
	d.graft(op, delta, b1, chain0, end1, path1)
	return true
}

// tail collects the nodes strictly after base up to its path end.
func (d *cross) tail(op *PathOperator, delta *Delta, base int64) ([]int64, int64) {
	var nodes []int64
	cur := op.Next(delta, base)
	for !op.IsPathEnd(cur) {
		nodes = append(nodes, cur)
		cur = op.Next(delta, cur)
	}
	return nodes, cur
}

// graft rewires base -> chain -> end, retagging the chain with path.
func (d *cross) graft(op *PathOperator, delta *Delta, base int64, chain []int64, end, path int64) {
	if len(chain) == 0 {
		op.setNext(delta, base, end, keepVehicle)
		return
	}
	op.setNext(delta, base, chain[0], keepVehicle)
	for i, n := range chain {
		next := end
		if i+1 < len(chain) {
			next = chain[i+1]
		}
		op.setNext(delta, n, next, path)
	}
}
