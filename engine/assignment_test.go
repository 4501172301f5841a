package engine_test

import (
	"path/filepath"
	"testing"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/stretchr/testify/require"
)

func TestAssignment_StoreCapturesBoundVars(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 9, "x")
	y, _ := s.NewIntVar(0, 9, "y")
	obj, _ := s.NewIntVar(0, 9, "obj")

	a := engine.NewAssignment()
	a.AddVars([]*engine.IntVar{x, y})
	a.AddObjective(obj)

	require.NoError(t, x.SetValue(4))
	require.NoError(t, obj.SetValue(7))
	a.Store()

	require.True(t, a.HasValue(x))
	require.Equal(t, int64(4), a.Value(x))
	require.False(t, a.HasValue(y))
	require.True(t, a.HasObjectiveValue())
	require.Equal(t, int64(7), a.ObjectiveValue())
}

func TestAssignment_CopyIsIndependent(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 9, "x")
	a := engine.NewAssignment()
	a.SetValue(x, 3)

	cp := a.Copy()
	cp.SetValue(x, 8)
	require.Equal(t, int64(3), a.Value(x))
	require.Equal(t, int64(8), cp.Value(x))
}

func TestAssignment_CopyFromOverwrites(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 9, "x")
	y, _ := s.NewIntVar(0, 9, "y")

	a := engine.NewAssignment()
	a.SetValue(x, 1)
	a.SetValue(y, 2)

	b := engine.NewAssignment()
	b.SetValue(x, 5)
	b.SetObjectiveValue(42)

	a.CopyFrom(b)
	require.Equal(t, int64(5), a.Value(x))
	require.Equal(t, int64(2), a.Value(y))
	require.Equal(t, int64(42), a.ObjectiveValue())
}

func TestAssignment_SaveLoadRoundTrip(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 99, "next/0")
	y, _ := s.NewIntVar(0, 99, "next/1")

	a := engine.NewAssignment()
	a.SetValue(x, 12)
	a.SetValue(y, 34)
	a.SetObjectiveValue(46)

	path := filepath.Join(t.TempDir(), "solution.yaml")
	require.NoError(t, a.Save(path))

	loaded := engine.NewAssignment()
	loaded.AddVars([]*engine.IntVar{x, y})
	require.NoError(t, loaded.Load(path))
	require.Equal(t, int64(12), loaded.Value(x))
	require.Equal(t, int64(34), loaded.Value(y))
	require.Equal(t, int64(46), loaded.ObjectiveValue())
}

func TestAssignment_LoadRejectsUnknownVariable(t *testing.T) {
	s := engine.NewSolver()
	x, _ := s.NewIntVar(0, 99, "known")
	stray, _ := s.NewIntVar(0, 99, "stray")

	a := engine.NewAssignment()
	a.SetValue(x, 1)
	a.SetValue(stray, 2)
	path := filepath.Join(t.TempDir(), "solution.yaml")
	require.NoError(t, a.Save(path))

	loaded := engine.NewAssignment()
	loaded.AddVars([]*engine.IntVar{x})
	err := loaded.Load(path)
	require.ErrorIs(t, err, engine.ErrContract)
}
