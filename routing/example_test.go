package routing_test

import (
	"fmt"

	"github.com/katalvlaran/lvroute/routing"
)

// Example builds a one-vehicle model over four locations, lets the
// cheapest-arc heuristic construct a tour and prints the improved
// solution.
func Example() {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc

	m, _ := routing.NewModel(4, 1, opts)
	m.SetDepot(0)
	distances, _ := routing.NewMatrixEvaluator([][]int64{
		{0, 1, 2, 3},
		{1, 0, 1, 2},
		{2, 1, 0, 1},
		{3, 2, 1, 0},
	})
	m.SetCost(distances)

	solution, _ := m.Solve(nil)
	routes, _ := m.AssignmentToRoutes(solution)
	fmt.Println("cost:", solution.ObjectiveValue())
	fmt.Println("route:", routes[0])
	// Output:
	// cost: 6
	// route: [1 2 3]
}

// ExampleModel_AddDisjunctionWithPenalty makes node 2 optional. Its
// detour costs more than the penalty, so the solver drops it.
func ExampleModel_AddDisjunctionWithPenalty() {
	opts := routing.DefaultSearchOptions()
	opts.FirstSolution = routing.PathCheapestArc

	m, _ := routing.NewModel(3, 1, opts)
	m.SetDepot(0)
	distances, _ := routing.NewMatrixEvaluator([][]int64{
		{0, 1, 100},
		{1, 0, 100},
		{100, 100, 0},
	})
	m.SetCost(distances)
	m.AddDisjunction([]routing.Node{1})
	m.AddDisjunctionWithPenalty([]routing.Node{2}, 10)

	solution, _ := m.Solve(nil)
	routes, _ := m.AssignmentToRoutes(solution)
	fmt.Println("cost:", solution.ObjectiveValue())
	fmt.Println("served:", routes[0])
	// Output:
	// cost: 12
	// served: [1]
}
