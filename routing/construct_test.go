package routing_test

import (
	"testing"

	"github.com/katalvlaran/lvroute/routing"
	"github.com/stretchr/testify/require"
)

// clusterMatrix describes a depot with two tight clusters, {1, 2} and
// {3, 4}. Depot legs cost 10, intra-cluster arcs 1, cross-cluster arcs
// 20.
func clusterMatrix() [][]int64 {
	const far = 20
	return [][]int64{
		{0, 10, 10, 10, 10},
		{10, 0, 1, far, far},
		{10, 1, 0, far, far},
		{10, far, far, 0, 1},
		{10, far, far, 1, 0},
	}
}

func newClusterModel(t *testing.T, vehicles int, opts routing.SearchOptions) *routing.Model {
	t.Helper()
	opts.FirstSolution = routing.Savings
	m, err := routing.NewModel(5, vehicles, opts)
	require.NoError(t, err)
	require.NoError(t, m.SetDepot(0))
	setMatrixCost(t, m, clusterMatrix())
	return m
}

func TestSweepArranger_OrdersByAngleWithinBands(t *testing.T) {
	points := []routing.Point{
		{X: 0, Y: 0},
		{X: 2, Y: 1},
		{X: 0, Y: 2},
		{X: -3, Y: 0},
		{X: 0, Y: -4},
	}
	arranger := routing.NewSweepArranger(points)

	// One band is a plain angular sweep around the first point.
	require.Equal(t, []routing.Node{0, 1, 2, 3, 4}, arranger.ArrangeNodes())

	// With two bands the near pair is swept before the far nodes.
	arranger.SetSectors(2)
	require.Equal(t, []routing.Node{0, 2, 1, 3, 4}, arranger.ArrangeNodes())

	// Sector counts below one fall back to a single band.
	arranger.SetSectors(0)
	require.Equal(t, []routing.Node{0, 1, 2, 3, 4}, arranger.ArrangeNodes())
}

func TestSolve_SavingsMergesClusters(t *testing.T) {
	m := newClusterModel(t, 2, routing.DefaultSearchOptions())

	routes, cost := solveToRoutes(t, m, nil)
	require.EqualValues(t, 42, cost)
	// The high-saving cluster links merge first; the flat cross link
	// then chains both clusters onto a single vehicle at no extra cost.
	require.Len(t, routes[0], 4)
	require.Empty(t, routes[1])
	require.ElementsMatch(t, []routing.Node{1, 2, 3, 4}, routes[0])
}

func TestSolve_SavingsRespectsCapacity(t *testing.T) {
	m := newClusterModel(t, 2, routing.DefaultSearchOptions())
	require.NoError(t, m.AddVectorDimension([]int64{0, 1, 1, 1, 1}, 2, true, "Load"))

	routes, cost := solveToRoutes(t, m, nil)
	require.EqualValues(t, 42, cost)
	// A third order would push the load past the vehicle capacity, so
	// the cumul walk rejects the cross merge and each cluster keeps its
	// own vehicle.
	require.Equal(t, [][]routing.Node{{1, 2}, {3, 4}}, routes)
}

func TestSolve_SavingsLeavesOverflowUnperformed(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.SolutionLimit = 1
	m := newClusterModel(t, 1, opts)
	for n := routing.Node(1); n <= 4; n++ {
		require.NoError(t, m.AddDisjunctionWithPenalty([]routing.Node{n}, 100))
	}

	routes, cost := solveToRoutes(t, m, nil)
	// One merge fills the only vehicle; the second cluster stays
	// unperformed and pays its penalties.
	require.Equal(t, [][]routing.Node{{1, 2}}, routes)
	require.EqualValues(t, 221, cost)
}

func TestSolve_AllUnperformedStartsEmpty(t *testing.T) {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.AllUnperformed
	opts.SolutionLimit = 1
	m := newLineModel(t, 4, 1, opts)
	for n := routing.Node(1); n <= 3; n++ {
		require.NoError(t, m.AddDisjunctionWithPenalty([]routing.Node{n}, 7))
	}

	routes, cost := solveToRoutes(t, m, nil)
	require.Empty(t, routes[0])
	require.EqualValues(t, 21, cost)
}
