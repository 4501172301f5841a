package engine_test

import (
	"testing"
	"time"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/stretchr/testify/require"
)

func buildVars(t *testing.T, s *engine.Solver, n int, min, max int64) []*engine.IntVar {
	t.Helper()
	vars := make([]*engine.IntVar, n)
	for i := range vars {
		vars[i] = mustVar(t, s, min, max, "v")
	}
	return vars
}

func TestSolve_EnumeratesAllSolutions(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 2, 0, 1)
	template := engine.NewAssignment()
	template.AddVars(vars)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewPhase(vars, engine.ChooseFirstUnbound, nil)
	found, limited := engine.Solve(s, db, collector, engine.SearchLimit{})
	require.True(t, found)
	require.False(t, limited)
	require.Equal(t, 4, collector.Count())
}

func TestSolve_KeepsBestObjective(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 2, "x")
	y, _ := s.NewIntVar(0, 2, "y")
	obj, _ := s.NewIntVar(0, 10, "obj")
	s.Post(engine.NewAllDifferent([]*engine.IntVar{x, y}))
	s.Post(engine.NewSumEquals([]*engine.IntVar{x, y}, obj))

	template := engine.NewAssignment()
	template.AddVars([]*engine.IntVar{x, y})
	template.AddObjective(obj)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewPhase([]*engine.IntVar{x, y}, engine.ChooseFirstUnbound, nil)
	found, _ := engine.Solve(s, db, collector, engine.SearchLimit{})
	require.True(t, found)
	// cheapest distinct pair sums to 1
	require.Equal(t, int64(1), collector.Best().ObjectiveValue())
}

func TestSolve_SolutionLimit(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 3, 0, 2)
	template := engine.NewAssignment()
	template.AddVars(vars)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewPhase(vars, engine.ChooseFirstUnbound, nil)
	found, limited := engine.Solve(s, db, collector, engine.SearchLimit{Solutions: 1})
	require.True(t, found)
	require.True(t, limited)
	require.Equal(t, 1, collector.Count())
}

func TestSolve_BranchLimit(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 8, 0, 7)
	db := engine.NewPhase(vars, engine.ChooseFirstUnbound, nil)
	_, limited := engine.Solve(s, db, nil, engine.SearchLimit{Branches: 3})
	require.True(t, limited)
}

func TestSolve_TimeLimit(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 12, 0, 1)
	db := engine.NewPhase(vars, engine.ChooseFirstUnbound, nil)
	_, limited := engine.Solve(s, db, nil, engine.SearchLimit{TimeLimit: time.Nanosecond})
	require.True(t, limited)
}

func TestSolve_InfeasibleRoot(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 0, "x")
	y, _ := s.NewIntVar(0, 0, "y")
	s.Post(engine.NewAllDifferent([]*engine.IntVar{x, y}))

	db := engine.NewPhase([]*engine.IntVar{x, y}, engine.ChooseFirstUnbound, nil)
	found, limited := engine.Solve(s, db, nil, engine.SearchLimit{})
	require.False(t, found)
	require.False(t, limited)
}

func TestSolve_UnwindsSolverState(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 2, 0, 3)
	db := engine.NewPhase(vars, engine.ChooseFirstUnbound, nil)
	engine.Solve(s, db, nil, engine.SearchLimit{Solutions: 1})
	for _, v := range vars {
		require.False(t, v.Bound())
		require.Equal(t, int64(0), v.Min())
		require.Equal(t, int64(3), v.Max())
	}
}

func TestSolve_RestoresPreassignment(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 2, 0, 3)
	pre := engine.NewAssignment()
	pre.SetValue(vars[0], 2)

	template := engine.NewAssignment()
	template.AddVars(vars)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewCompose(
		engine.NewRestoreAssignment(pre),
		engine.NewPhase(vars, engine.ChooseFirstUnbound, nil),
	)
	found, _ := engine.Solve(s, db, collector, engine.SearchLimit{Solutions: 1})
	require.True(t, found)
	require.Equal(t, int64(2), collector.Best().Value(vars[0]))
}

func TestTry_FallsBackToSecondAlternative(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 2, 0, 2)
	// the first alternative demands an out-of-domain value and must fail
	bad := engine.NewAssignment()
	bad.SetValue(vars[0], 9)

	template := engine.NewAssignment()
	template.AddVars(vars)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewTry(
		engine.NewRestoreAssignment(bad),
		engine.NewPhase(vars, engine.ChooseFirstUnbound, nil),
	)
	found, _ := engine.Solve(s, db, collector, engine.SearchLimit{Solutions: 1})
	require.True(t, found)
	require.Equal(t, int64(0), collector.Best().Value(vars[0]))
}

func TestPhase_GlobalBestPicksCheapestPair(t *testing.T) {
	s := engine.NewSolver()
	vars := buildVars(t, s, 2, 0, 2)
	// make (var 1, value 2) the cheapest assignment everywhere
	eval := func(varIndex int, value int64) int64 {
		if varIndex == 1 && value == 2 {
			return 0
		}
		return 10 + value
	}
	template := engine.NewAssignment()
	template.AddVars(vars)
	collector := engine.NewSolutionCollector(template)

	db := engine.NewPhase(vars, engine.ChooseGlobalBest, eval)
	found, _ := engine.Solve(s, db, collector, engine.SearchLimit{Solutions: 1})
	require.True(t, found)
	require.Equal(t, int64(2), collector.Best().Value(vars[1]))
}

func TestPhase_ChoosePathFollowsChain(t *testing.T) {
	s := engine.NewSolver()
	// successor-style vars where value k points at var k
	vars := buildVars(t, s, 3, 0, 3)
	pre := engine.NewAssignment()
	pre.SetValue(vars[0], 1)

	var order []int
	eval := func(varIndex int, value int64) int64 {
		order = append(order, varIndex)
		return value
	}
	db := engine.NewCompose(
		engine.NewRestoreAssignment(pre),
		engine.NewPhase(vars, engine.ChoosePath, eval),
	)
	found, _ := engine.Solve(s, db, nil, engine.SearchLimit{Solutions: 1})
	require.True(t, found)
	// var 1 is evaluated before var 2: the phase extends the 0 -> 1 chain
	require.NotEmpty(t, order)
	require.Equal(t, 1, order[0])
}
