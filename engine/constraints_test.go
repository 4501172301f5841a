package engine_test

import (
	"testing"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/stretchr/testify/require"
)

func TestAllDifferent_PrunesOnBind(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 2, "x")
	y, _ := s.NewIntVar(0, 2, "y")
	z, _ := s.NewIntVar(0, 2, "z")
	s.Post(engine.NewAllDifferent([]*engine.IntVar{x, y, z}))
	require.NoError(t, s.Propagate())

	require.NoError(t, x.SetValue(0))
	require.NoError(t, s.Propagate())
	require.False(t, y.Contains(0))
	require.False(t, z.Contains(0))

	require.NoError(t, y.SetValue(1))
	require.NoError(t, s.Propagate())
	require.True(t, z.Bound())
	require.Equal(t, int64(2), z.Value())
}

func TestAllDifferent_FailsOnDuplicate(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 2, "x")
	y, _ := s.NewIntVar(0, 2, "y")
	s.Post(engine.NewAllDifferent([]*engine.IntVar{x, y}))
	require.NoError(t, s.Propagate())

	require.NoError(t, x.SetValue(1))
	require.NoError(t, s.Propagate())
	err := y.SetValue(1)
	require.ErrorIs(t, err, engine.ErrFailed)
}

func TestNoCycle_RejectsClosedLoop(t *testing.T) {
	s := engine.NewSolver()
	nexts := make([]*engine.IntVar, 3)
	for i := range nexts {
		nexts[i], _ = s.NewIntVar(0, 3, "n")
	}
	s.Post(engine.NewNoCycle(nexts))
	require.NoError(t, s.Propagate())

	require.NoError(t, nexts[0].SetValue(1))
	require.NoError(t, nexts[1].SetValue(2))
	require.NoError(t, s.Propagate())
	// closing 2 -> 0 makes a loop with no sink
	require.NoError(t, nexts[2].SetValue(0))
	require.ErrorIs(t, s.Propagate(), engine.ErrFailed)
}

func TestNoCycle_AllowsChainToSink(t *testing.T) {
	s := engine.NewSolver()
	nexts := make([]*engine.IntVar, 3)
	for i := range nexts {
		nexts[i], _ = s.NewIntVar(0, 3, "n")
	}
	s.Post(engine.NewNoCycle(nexts))
	require.NoError(t, s.Propagate())

	// 0 -> 1 -> 2 -> 3 where 3 is past the array: a valid open path
	require.NoError(t, nexts[0].SetValue(1))
	require.NoError(t, nexts[1].SetValue(2))
	require.NoError(t, nexts[2].SetValue(3))
	require.NoError(t, s.Propagate())
}

func TestNoCycle_IgnoresSelfLoops(t *testing.T) {
	s := engine.NewSolver()
	nexts := make([]*engine.IntVar, 2)
	for i := range nexts {
		nexts[i], _ = s.NewIntVar(0, 2, "n")
	}
	s.Post(engine.NewNoCycle(nexts))
	require.NoError(t, s.Propagate())

	require.NoError(t, nexts[0].SetValue(0))
	require.NoError(t, nexts[1].SetValue(2))
	require.NoError(t, s.Propagate())
}

func TestPathCumul_ForwardAndBackward(t *testing.T) {
	s := engine.NewSolver()
	nexts := []*engine.IntVar{mustVar(t, s, 0, 2, "n0"), mustVar(t, s, 0, 2, "n1")}
	cumuls := []*engine.IntVar{
		mustVar(t, s, 0, 100, "c0"),
		mustVar(t, s, 0, 100, "c1"),
		mustVar(t, s, 0, 100, "c2"),
	}
	transits := []*engine.IntVar{mustVar(t, s, 5, 5, "t0"), mustVar(t, s, 7, 7, "t1")}
	s.Post(engine.NewPathCumul(nexts, cumuls, transits))
	require.NoError(t, s.Propagate())

	require.NoError(t, nexts[0].SetValue(1))
	require.NoError(t, nexts[1].SetValue(2))
	require.NoError(t, s.Propagate())
	// forward: cumul1 >= cumul0 + 5, cumul2 >= cumul1 + 7
	require.Equal(t, int64(5), cumuls[1].Min())
	require.Equal(t, int64(12), cumuls[2].Min())

	// backward: capping the path end tightens the upstream cumuls
	require.NoError(t, cumuls[2].SetMax(20))
	require.NoError(t, s.Propagate())
	require.Equal(t, int64(13), cumuls[1].Max())
	require.Equal(t, int64(8), cumuls[0].Max())
}

func TestPathCumul_InfeasibleWindow(t *testing.T) {
	s := engine.NewSolver()
	nexts := []*engine.IntVar{mustVar(t, s, 0, 1, "n0")}
	cumuls := []*engine.IntVar{mustVar(t, s, 0, 10, "c0"), mustVar(t, s, 0, 4, "c1")}
	transits := []*engine.IntVar{mustVar(t, s, 5, 5, "t0")}
	s.Post(engine.NewPathCumul(nexts, cumuls, transits))
	require.NoError(t, s.Propagate())

	// cumul1 would need at least 5 but its window tops out at 4
	require.NoError(t, nexts[0].SetValue(1))
	require.ErrorIs(t, s.Propagate(), engine.ErrFailed)
}

func TestLessOrEqual(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(2, 10, "x")
	y, _ := s.NewIntVar(0, 5, "y")
	s.Post(engine.NewLessOrEqual(x, y))
	require.NoError(t, s.Propagate())
	require.Equal(t, int64(5), x.Max())
	require.Equal(t, int64(2), y.Min())
}

func TestIsLessOrEqual_Reified(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 3, "x")
	y, _ := s.NewIntVar(5, 9, "y")
	b := s.NewBoolVar("b")
	s.Post(engine.NewIsLessOrEqual(x, y, b))
	require.NoError(t, s.Propagate())
	// x.Max < y.Min, so the comparison is decided
	require.True(t, b.Bound())
	require.Equal(t, int64(1), b.Value())
}

func TestIsLessOrEqual_ForcedFalse(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 10, "x")
	y, _ := s.NewIntVar(0, 10, "y")
	b := s.NewBoolVar("b")
	s.Post(engine.NewIsLessOrEqual(x, y, b))
	require.NoError(t, s.Propagate())

	require.NoError(t, b.SetValue(0))
	require.NoError(t, s.Propagate())
	// b == 0 means x > y
	require.Equal(t, int64(1), x.Min())
	require.Equal(t, int64(9), y.Max())
}

func TestIsDifferentCst(t *testing.T) {
	s := engine.NewSolver()
	v, _ := s.NewIntVar(0, 5, "v")
	b := s.NewBoolVar("b")
	s.Post(engine.NewIsDifferentCst(v, 3, b))
	require.NoError(t, s.Propagate())

	// forcing b = 0 pins v to the constant
	require.NoError(t, b.SetValue(0))
	require.NoError(t, s.Propagate())
	require.True(t, v.Bound())
	require.Equal(t, int64(3), v.Value())
}

func TestIsDifferentCst_DetectsFromVar(t *testing.T) {
	s := engine.NewSolver()
	v, _ := s.NewIntVar(0, 5, "v")
	b := s.NewBoolVar("b")
	s.Post(engine.NewIsDifferentCst(v, 3, b))
	require.NoError(t, s.Propagate())

	require.NoError(t, v.RemoveValue(3))
	require.NoError(t, s.Propagate())
	require.True(t, b.Bound())
	require.Equal(t, int64(1), b.Value())
}

func TestBoolProduct(t *testing.T) {
	s := engine.NewSolver()
	target, _ := s.NewIntVar(0, 100, "target")
	x, _ := s.NewIntVar(10, 20, "x")
	b := s.NewBoolVar("b")
	s.Post(engine.NewBoolProduct(target, x, b))
	require.NoError(t, s.Propagate())

	require.NoError(t, b.SetValue(1))
	require.NoError(t, s.Propagate())
	require.Equal(t, int64(10), target.Min())
	require.Equal(t, int64(20), target.Max())
}

func TestBoolProduct_ZeroWhenInactive(t *testing.T) {
	s := engine.NewSolver()
	target, _ := s.NewIntVar(0, 100, "target")
	x, _ := s.NewIntVar(10, 20, "x")
	b := s.NewBoolVar("b")
	s.Post(engine.NewBoolProduct(target, x, b))
	require.NoError(t, s.Propagate())

	require.NoError(t, b.SetValue(0))
	require.NoError(t, s.Propagate())
	require.True(t, target.Bound())
	require.Equal(t, int64(0), target.Value())
}

func TestSumEquals(t *testing.T) {
	s := engine.NewSolver()
	a, _ := s.NewIntVar(1, 3, "a")
	b, _ := s.NewIntVar(2, 4, "b")
	total, _ := s.NewIntVar(0, 100, "total")
	s.Post(engine.NewSumEquals([]*engine.IntVar{a, b}, total))
	require.NoError(t, s.Propagate())
	require.Equal(t, int64(3), total.Min())
	require.Equal(t, int64(7), total.Max())

	// pinning the total squeezes the terms
	require.NoError(t, total.SetValue(7))
	require.NoError(t, s.Propagate())
	require.Equal(t, int64(3), a.Value())
	require.Equal(t, int64(4), b.Value())
}

func mustVar(t *testing.T, s *engine.Solver, min, max int64, name string) *engine.IntVar {
	t.Helper()
	v, err := s.NewIntVar(min, max, name)
	require.NoError(t, err)
	return v
}
