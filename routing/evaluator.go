package routing

import (
	"fmt"

	"github.com/katalvlaran/lvroute/engine"
)

// NodeEvaluator prices an arc between two nodes. Implementations must be
// deterministic while a model is being solved; the model may memoize
// them, deduplicate them by identity, and call them after CloseModel for
// any node pair, including pairs that never share a route.
type NodeEvaluator interface {
	Value(from, to Node) int64
}

// matrixEvaluator serves costs from a dense copy of a nodes-by-nodes
// matrix.
type matrixEvaluator struct {
	n      int
	values []int64
}

// NewMatrixEvaluator copies the given square matrix into a dense
// evaluator. Rows are origins and columns destinations. A ragged or
// empty matrix returns an error wrapping engine.ErrContract.
func NewMatrixEvaluator(matrix [][]int64) (NodeEvaluator, error) {
	n := len(matrix)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty cost matrix", engine.ErrContract)
	}
	values := make([]int64, 0, n*n)
	for i, row := range matrix {
		if len(row) != n {
			return nil, fmt.Errorf("%w: cost matrix row %d has %d columns, want %d", engine.ErrContract, i, len(row), n)
		}
		values = append(values, row...)
	}
	return &matrixEvaluator{n: n, values: values}, nil
}

func (m *matrixEvaluator) Value(from, to Node) int64 {
	if from < 0 || int(from) >= m.n || to < 0 || int(to) >= m.n {
		return 0
	}
	return m.values[int(from)*m.n+int(to)]
}

// vectorEvaluator prices every arc by its origin only, the shape used by
// demand and service-time dimensions.
type vectorEvaluator struct {
	values []int64
}

// NewVectorEvaluator copies values and returns an evaluator whose arc
// cost depends on the origin node alone: Value(from, to) = values[from].
func NewVectorEvaluator(values []int64) NodeEvaluator {
	cp := make([]int64, len(values))
	copy(cp, values)
	return &vectorEvaluator{values: cp}
}

func (v *vectorEvaluator) Value(from, _ Node) int64 {
	if from < 0 || int(from) >= len(v.values) {
		return 0
	}
	return v.values[from]
}

// constantEvaluator prices every arc the same.
type constantEvaluator struct {
	value int64
}

// NewConstantEvaluator returns an evaluator pricing every arc at value.
func NewConstantEvaluator(value int64) NodeEvaluator {
	return &constantEvaluator{value: value}
}

func (c *constantEvaluator) Value(_, _ Node) int64 { return c.value }

// funcEvaluator adapts a plain function. The returned pointer gives each
// adapter a distinct identity, which the model uses to share cost
// classes between vehicles configured with the same evaluator value.
type funcEvaluator struct {
	fn func(from, to Node) int64
}

// NewFuncEvaluator wraps fn as a NodeEvaluator. Call it once and reuse
// the result when several vehicles should share one cost class; two
// wrappers around the same fn count as different evaluators.
func NewFuncEvaluator(fn func(from, to Node) int64) NodeEvaluator {
	return &funcEvaluator{fn: fn}
}

func (f *funcEvaluator) Value(from, to Node) int64 {
	if from < 0 || to < 0 {
		return 0
	}
	return f.fn(from, to)
}

// cachedEvaluator memoizes base in a dense lazy table. Entries are
// computed on first access, so the table costs memory proportional to
// the pairs actually priced plus the bookkeeping bitmap.
type cachedEvaluator struct {
	base   NodeEvaluator
	n      int
	known  []bool
	values []int64
}

// NewCachedEvaluator wraps base with a nodes-by-nodes memo table. Pairs
// outside [0, nodes) bypass the cache. The wrapper is not safe for
// concurrent use.
func NewCachedEvaluator(base NodeEvaluator, nodes int) NodeEvaluator {
	if nodes < 0 {
		nodes = 0
	}
	return &cachedEvaluator{
		base:   base,
		n:      nodes,
		known:  make([]bool, nodes*nodes),
		values: make([]int64, nodes*nodes),
	}
}

func (c *cachedEvaluator) Value(from, to Node) int64 {
	if from < 0 || int(from) >= c.n || to < 0 || int(to) >= c.n {
		return c.base.Value(from, to)
	}
	at := int(from)*c.n + int(to)
	if !c.known[at] {
		c.values[at] = c.base.Value(from, to)
		c.known[at] = true
	}
	return c.values[at]
}
