package routing_test

import (
	"testing"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/routing"
	"github.com/stretchr/testify/require"
)

func TestNewMatrixEvaluator_RejectsBadShapes(t *testing.T) {
	_, err := routing.NewMatrixEvaluator(nil)
	require.ErrorIs(t, err, engine.ErrContract)

	_, err = routing.NewMatrixEvaluator([][]int64{{0, 1}, {2}})
	require.ErrorIs(t, err, engine.ErrContract)
}

func TestEvaluators_Shapes(t *testing.T) {
	matrix, err := routing.NewMatrixEvaluator([][]int64{{0, 7}, {3, 0}})
	require.NoError(t, err)
	require.EqualValues(t, 7, matrix.Value(0, 1))
	require.EqualValues(t, 0, matrix.Value(0, 9))

	vector := routing.NewVectorEvaluator([]int64{5, 7})
	require.EqualValues(t, 5, vector.Value(0, 99))
	require.EqualValues(t, 0, vector.Value(9, 0))

	constant := routing.NewConstantEvaluator(3)
	require.EqualValues(t, 3, constant.Value(8, 8))

	double := routing.NewFuncEvaluator(func(from, to routing.Node) int64 {
		return int64(2 * (from + to))
	})
	require.EqualValues(t, 6, double.Value(1, 2))
	require.EqualValues(t, 0, double.Value(-1, 2))
}

func TestCachedEvaluator_PricesEachPairOnce(t *testing.T) {
	calls := 0
	base := routing.NewFuncEvaluator(func(from, to routing.Node) int64 {
		calls++
		return int64(from)*10 + int64(to)
	})
	cached := routing.NewCachedEvaluator(base, 3)

	require.EqualValues(t, 12, cached.Value(1, 2))
	require.EqualValues(t, 12, cached.Value(1, 2))
	require.Equal(t, 1, calls)

	// Pairs outside the table go straight to the base evaluator.
	require.EqualValues(t, 35, cached.Value(3, 5))
	require.EqualValues(t, 35, cached.Value(3, 5))
	require.Equal(t, 3, calls)
}
