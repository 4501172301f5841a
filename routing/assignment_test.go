package routing_test

import (
	"path/filepath"
	"testing"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/routing"
	"github.com/stretchr/testify/require"
)

func TestRoutesToAssignment_RoundTrip(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	m, err := routing.NewModel(5, 2, opts)
	require.NoError(t, err)
	require.NoError(t, m.SetDepot(0))
	setMatrixCost(t, m, lineMatrix(5))
	require.NoError(t, m.AddDisjunctionWithPenalty([]routing.Node{4}, 5))

	routes := [][]routing.Node{{2, 1}, {3}}
	solution, err := m.ReadAssignmentFromRoutes(routes, false)
	require.NoError(t, err)
	require.NotNil(t, solution)
	require.Equal(t, routing.Success, m.Status())
	// v0 drives 0-2-1-0, v1 drives 0-3-0, node 4 pays its penalty.
	require.EqualValues(t, 15, solution.ObjectiveValue())

	back, err := m.AssignmentToRoutes(solution)
	require.NoError(t, err)
	require.Equal(t, routes, back)
}

func TestRoutesToAssignment_Validation(t *testing.T) {
	t.Run("NotClosed", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		err := m.RoutesToAssignment([][]routing.Node{{1}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)
	})
	t.Run("NilTarget", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		m.CloseModel()
		err := m.RoutesToAssignment([][]routing.Node{{1}}, false, false, nil)
		require.ErrorIs(t, err, engine.ErrContract)
	})
	t.Run("TooManyRoutes", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		m.CloseModel()
		err := m.RoutesToAssignment([][]routing.Node{{1}, {2}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)
	})
	t.Run("UnknownNode", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		m.CloseModel()
		err := m.RoutesToAssignment([][]routing.Node{{9}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)
	})
	t.Run("RevisitedNode", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		m.CloseModel()
		err := m.RoutesToAssignment([][]routing.Node{{1, 1}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)
	})
	t.Run("DepotMidRoute", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		m.CloseModel()
		err := m.RoutesToAssignment([][]routing.Node{{1, 0}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)
	})
	t.Run("InactiveNode", func(t *testing.T) {
		m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
		require.NoError(t, m.AddDisjunctionWithPenalty([]routing.Node{2}, 5))
		m.CloseModel()
		require.NoError(t, m.ActiveVar(m.NodeToIndex(2)).SetMax(0))

		err := m.RoutesToAssignment([][]routing.Node{{1, 2}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)

		target := engine.NewAssignment()
		require.NoError(t, m.RoutesToAssignment([][]routing.Node{{1, 2}}, true, false, target))
		require.EqualValues(t, m.NodeToIndex(1), target.Value(m.NextVar(m.Start(0))))
	})
	t.Run("ForbiddenVehicle", func(t *testing.T) {
		m := newLineModel(t, 4, 2, routing.DefaultSearchOptions())
		m.CloseModel()
		require.NoError(t, m.VehicleVar(m.NodeToIndex(1)).RemoveValue(0))
		err := m.RoutesToAssignment([][]routing.Node{{1}}, false, false, engine.NewAssignment())
		require.ErrorIs(t, err, engine.ErrContract)
	})
}

func TestAssignmentToRoutes_Errors(t *testing.T) {
	m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	_, err := m.AssignmentToRoutes(engine.NewAssignment())
	require.ErrorIs(t, err, engine.ErrContract)

	m.CloseModel()
	_, err = m.AssignmentToRoutes(nil)
	require.ErrorIs(t, err, engine.ErrContract)
	// An empty assignment leaves the vehicle start unbound.
	_, err = m.AssignmentToRoutes(engine.NewAssignment())
	require.ErrorIs(t, err, engine.ErrContract)
}

func TestApplyLocks_ChainSurvivesConstruction(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	opts.SolutionLimit = 1
	m := newLineModel(t, 4, 1, opts)

	lockVar, err := m.ApplyLocks([]int64{2, 1})
	require.NoError(t, err)
	require.Same(t, m.NextVar(1), lockVar)

	routes, cost := solveToRoutes(t, m, nil)
	require.Equal(t, [][]routing.Node{{2, 1, 3}}, routes)
	require.EqualValues(t, 8, cost)
}

func TestApplyLocks_Contract(t *testing.T) {
	m := newLineModel(t, 4, 2, routing.DefaultSearchOptions())
	_, err := m.ApplyLocks([]int64{1})
	require.ErrorIs(t, err, engine.ErrContract)

	single := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	_, err = single.ApplyLocks([]int64{99})
	require.ErrorIs(t, err, engine.ErrContract)
}

func TestApplyLocksToAllVehicles_LocksFirstVisits(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	opts.SolutionLimit = 1
	m := newLineModel(t, 5, 2, opts)
	m.CloseModel()
	require.NoError(t, m.ApplyLocksToAllVehicles([][]routing.Node{{1}, {3}}, false))

	routes, cost := solveToRoutes(t, m, nil)
	require.Equal(t, routing.Node(1), routes[0][0])
	require.Equal(t, routing.Node(3), routes[1][0])
	require.EqualValues(t, 14, cost)
}

func TestWriteReadAssignment_RoundTrip(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	m := newLineModel(t, 4, 1, opts)
	first, err := m.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	path := filepath.Join(t.TempDir(), "solution.yaml")
	require.NoError(t, m.WriteAssignment(path))

	reloaded := newLineModel(t, 4, 1, opts)
	restored, err := reloaded.ReadAssignment(path)
	require.NoError(t, err)
	require.NotNil(t, restored)
	require.Equal(t, routing.Success, reloaded.Status())
	require.Equal(t, first.ObjectiveValue(), restored.ObjectiveValue())
}

func TestWriteAssignment_RequiresSolution(t *testing.T) {
	m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	err := m.WriteAssignment(filepath.Join(t.TempDir(), "solution.yaml"))
	require.ErrorIs(t, err, engine.ErrContract)
}

func TestReadAssignment_Errors(t *testing.T) {
	m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	_, err := m.ReadAssignment(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	// A snapshot of a larger model names variables this one lacks.
	big := newLineModel(t, 5, 1, routing.DefaultSearchOptions())
	solution, err := big.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, solution)
	path := filepath.Join(t.TempDir(), "big.yaml")
	require.NoError(t, big.WriteAssignment(path))

	_, err = m.ReadAssignment(path)
	require.ErrorIs(t, err, engine.ErrUnknownVariable)
}

func TestRestoreAssignment_ReplaysSolution(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc
	m := newLineModel(t, 4, 1, opts)
	solution, err := m.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, solution)

	restored := m.RestoreAssignment(solution)
	require.NotNil(t, restored)
	require.Equal(t, routing.Success, m.Status())
	require.Equal(t, solution.ObjectiveValue(), restored.ObjectiveValue())

	require.Nil(t, m.RestoreAssignment(nil))
	require.Equal(t, routing.Fail, m.Status())
}

func TestCompactAssignment_MovesRouteForward(t *testing.T) {
	m := newLineModel(t, 3, 2, routing.DefaultSearchOptions())
	require.NoError(t, m.AddVectorDimension([]int64{0, 1, 1}, 5, true, "Load"))
	solution, err := m.ReadAssignmentFromRoutes([][]routing.Node{{}, {1, 2}}, false)
	require.NoError(t, err)
	require.NotNil(t, solution)
	require.False(t, m.IsVehicleUsed(solution, 0))
	require.True(t, m.IsVehicleUsed(solution, 1))
	require.EqualValues(t, m.NodeToIndex(1), m.Next(solution, m.Start(1)))

	compact := m.CompactAssignment(solution)
	require.NotNil(t, compact)
	routes, err := m.AssignmentToRoutes(compact)
	require.NoError(t, err)
	require.Equal(t, [][]routing.Node{{1, 2}, {}}, routes)
	require.True(t, m.IsVehicleUsed(compact, 0))
	require.False(t, m.IsVehicleUsed(compact, 1))
	// The end cumuls moved with the route.
	require.EqualValues(t, 2, compact.Value(m.CumulVar(m.End(0), "Load")))
	require.EqualValues(t, 0, compact.Value(m.CumulVar(m.End(1), "Load")))
}

func TestCompactAssignment_KeepsUsedPrefix(t *testing.T) {
	m := newLineModel(t, 3, 2, routing.DefaultSearchOptions())
	solution, err := m.ReadAssignmentFromRoutes([][]routing.Node{{1}, {2}}, false)
	require.NoError(t, err)
	require.NotNil(t, solution)

	compact := m.CompactAssignment(solution)
	require.NotNil(t, compact)
	routes, err := m.AssignmentToRoutes(compact)
	require.NoError(t, err)
	require.Equal(t, [][]routing.Node{{1}, {2}}, routes)
}

func TestCompactAssignment_RespectsVehicleDomains(t *testing.T) {
	m := newLineModel(t, 3, 2, routing.DefaultSearchOptions())
	m.CloseModel()
	require.NoError(t, m.VehicleVar(m.NodeToIndex(1)).RemoveValue(0))
	solution, err := m.ReadAssignmentFromRoutes([][]routing.Node{{}, {1, 2}}, false)
	require.NoError(t, err)
	require.NotNil(t, solution)

	require.False(t, m.RouteCanBeUsedByVehicle(solution, m.Start(1), 0))
	// No vehicle can take over the route, so compaction gives up.
	require.Nil(t, m.CompactAssignment(solution))
}

func TestCompactAssignment_HeterogeneousReturnsCopy(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	m, err := routing.NewModel(3, 2, opts)
	require.NoError(t, err)
	require.NoError(t, m.SetDepot(0))
	evaluator, err := routing.NewMatrixEvaluator(lineMatrix(3))
	require.NoError(t, err)
	require.NoError(t, m.SetVehicleCost(0, evaluator))
	require.NoError(t, m.SetVehicleCost(1, routing.NewConstantEvaluator(7)))

	solution, err := m.ReadAssignmentFromRoutes([][]routing.Node{{}, {1, 2}}, false)
	require.NoError(t, err)
	require.NotNil(t, solution)

	compact := m.CompactAssignment(solution)
	require.NotNil(t, compact)
	routes, err := m.AssignmentToRoutes(compact)
	require.NoError(t, err)
	require.Equal(t, [][]routing.Node{{}, {1, 2}}, routes)
}

func TestReplaceUnusedVehicle_RewiresRoute(t *testing.T) {
	m := newLineModel(t, 3, 2, routing.DefaultSearchOptions())
	solution, err := m.ReadAssignmentFromRoutes([][]routing.Node{{}, {1, 2}}, false)
	require.NoError(t, err)
	require.NotNil(t, solution)

	compact := solution.Copy()
	require.True(t, m.ReplaceUnusedVehicle(0, 1, compact))
	routes, err := m.AssignmentToRoutes(compact)
	require.NoError(t, err)
	require.Equal(t, [][]routing.Node{{1, 2}, {}}, routes)
	require.EqualValues(t, 0, compact.Value(m.VehicleVar(m.NodeToIndex(1))))
	require.EqualValues(t, 0, compact.Value(m.VehicleVar(m.NodeToIndex(2))))
}

func TestAddToAssignment_ExposesExtraVars(t *testing.T) {
	m := newLineModel(t, 4, 1, routing.DefaultSearchOptions())
	marker, err := m.Solver().NewIntVar(3, 3, "Marker")
	require.NoError(t, err)
	m.AddToAssignment(marker)

	solution, err := m.Solve(nil)
	require.NoError(t, err)
	require.NotNil(t, solution)
	require.True(t, solution.Contains(marker))
	require.EqualValues(t, 3, solution.Value(marker))
}
