package routing_test

import (
	"testing"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/routing"
	"github.com/stretchr/testify/require"
)

func TestAddDimension_Validation(t *testing.T) {
	m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	unit := routing.NewConstantEvaluator(1)

	require.ErrorIs(t, m.AddDimension(nil, 0, 10, true, "Load"), engine.ErrContract)
	require.ErrorIs(t, m.AddDimension(unit, 0, 10, true, ""), engine.ErrContract)
	require.ErrorIs(t, m.AddDimension(unit, -1, 10, true, "Load"), engine.ErrContract)
	require.ErrorIs(t, m.AddDimension(unit, 0, -10, true, "Load"), engine.ErrContract)
	require.ErrorIs(t, m.AddVectorDimension([]int64{1, 2}, 10, true, "Load"), engine.ErrContract)
	require.ErrorIs(t, m.AddMatrixDimension([][]int64{{0}}, 10, true, "Load"), engine.ErrContract)
	require.ErrorIs(t, m.AddDimensionWithVehicleCapacity(unit, 0, nil, true, "Load"), engine.ErrContract)

	require.NoError(t, m.AddConstantDimension(1, 10, true, "Load"))
	require.ErrorIs(t, m.AddConstantDimension(1, 10, true, "Load"), engine.ErrContract)

	m.CloseModel()
	require.ErrorIs(t, m.AddConstantDimension(1, 10, true, "Late"), engine.ErrContract)
}

func TestDimension_Accessors(t *testing.T) {
	m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	require.NoError(t, m.AddMatrixDimension(lineMatrix(4), 100, true, "Time"))

	require.True(t, m.HasDimension("Time"))
	require.False(t, m.HasDimension("Load"))
	require.Equal(t, []string{"Time"}, m.AllDimensions())

	require.NotNil(t, m.CumulVar(0, "Time"))
	require.Nil(t, m.CumulVar(0, "Load"))
	require.NotNil(t, m.TransitVar(0, "Time"))
	require.NotNil(t, m.SlackVar(0, "Time"))

	require.EqualValues(t, 2, m.TransitValue("Time", m.NodeToIndex(1), m.NodeToIndex(3)))
	// The end index maps back to the depot node.
	require.EqualValues(t, 1, m.TransitValue("Time", m.NodeToIndex(1), m.End(0)))
	require.EqualValues(t, 0, m.TransitValue("Load", 0, 1))
}

func TestSolve_ConstantDimensionCountsStops(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	m := newLineModel(t, 4, 1, opts)
	require.NoError(t, m.AddConstantDimension(1, 10, true, "Stops"))

	solution, err := m.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, solution)
	// Three customers plus the closing arc.
	require.EqualValues(t, 4, solution.Value(m.CumulVar(m.End(0), "Stops")))
}

func TestSolve_TimeWindowForcesReorder(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	m := newLineModel(t, 4, 1, opts)
	require.NoError(t, m.AddMatrixDimension(lineMatrix(4), 100, true, "Time"))
	// Node 1 may not be served before time 2, ruling the cheapest
	// nearest-neighbor tour out.
	require.NoError(t, m.CumulVar(m.NodeToIndex(1), "Time").SetMin(2))

	solution, err := m.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, solution)
	routes, err := m.AssignmentToRoutes(solution)
	require.NoError(t, err)

	require.EqualValues(t, 6, solution.ObjectiveValue())
	require.NotEqual(t, routing.Node(1), routes[0][0])
	require.GreaterOrEqual(t, solution.Value(m.CumulVar(m.NodeToIndex(1), "Time")), int64(2))
}

func TestSolve_VehicleCapacityDimension(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	m := newLineModel(t, 5, 2, opts)
	capacity := func(vehicle int64) int64 {
		if vehicle == 0 {
			return 1
		}
		return 3
	}
	require.NoError(t, m.AddDimensionWithVehicleCapacity(
		routing.NewVectorEvaluator([]int64{0, 1, 1, 1, 1}), 0, capacity, true, "Load"))

	solution, err := m.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, solution)
	routes, err := m.AssignmentToRoutes(solution)
	require.NoError(t, err)

	require.Len(t, routes[0], 1)
	require.Len(t, routes[1], 3)
	require.LessOrEqual(t, solution.Value(m.CumulVar(m.End(0), "Load")), int64(1))
	require.LessOrEqual(t, solution.Value(m.CumulVar(m.End(1), "Load")), int64(3))
}

func TestSolve_SlackAllowsWaiting(t *testing.T) {
	// Asymmetric travel times: visiting node 1 first costs 3, last 20.
	times := [][]int64{
		{0, 1, 9},
		{2, 0, 1},
		{1, 9, 0},
	}
	solveWithSlack := func(slackMax int64) int64 {
		opts := routing.DefaultSearchOptions()
		opts.FirstSolution = routing.PathCheapestArc
		m, err := routing.NewModel(3, 1, opts)
		require.NoError(t, err)
		require.NoError(t, m.SetDepot(0))
		setMatrixCost(t, m, times)
		evaluator, err := routing.NewMatrixEvaluator(times)
		require.NoError(t, err)
		require.NoError(t, m.AddDimension(evaluator, slackMax, 100, true, "Time"))
		// Node 1 opens at time 3, later than the direct arrival.
		require.NoError(t, m.CumulVar(m.NodeToIndex(1), "Time").SetMin(3))

		solution, err := m.Solve(nil)
		require.NoError(t, err)
		require.NotNil(t, solution)
		return solution.ObjectiveValue()
	}

	// Without slack the vehicle cannot wait, forcing the long detour.
	require.EqualValues(t, 20, solveWithSlack(0))
	// Waiting at node 1 keeps the cheap order legal.
	require.EqualValues(t, 3, solveWithSlack(10))
}
