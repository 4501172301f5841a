package engine_test

import (
	"fmt"

	"github.com/katalvlaran/lvroute/engine"
)

// ExampleSolve builds a two-variable model, posts an all-different
// constraint, and searches for the assignment minimizing the sum.
func ExampleSolve() {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 2, "x")
	y, _ := s.NewIntVar(0, 2, "y")
	sum, _ := s.NewIntVar(0, 4, "sum")
	s.Post(engine.NewAllDifferent([]*engine.IntVar{x, y}))
	s.Post(engine.NewSumEquals([]*engine.IntVar{x, y}, sum))

	template := engine.NewAssignment()
	template.AddVars([]*engine.IntVar{x, y})
	template.AddObjective(sum)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewPhase([]*engine.IntVar{x, y}, engine.ChooseFirstUnbound, nil)
	found, _ := engine.Solve(s, db, collector, engine.SearchLimit{})
	best := collector.Best()
	fmt.Println(found, best.Value(x), best.Value(y), best.ObjectiveValue())
	// Output: true 0 1 1
}
