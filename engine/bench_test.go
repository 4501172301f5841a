package engine_test

import (
	"fmt"
	"testing"

	"github.com/katalvlaran/lvroute/engine"
)

// benchVars allocates n fresh variables with the domain [0, n].
func benchVars(b *testing.B, s *engine.Solver, n int) []*engine.IntVar {
	b.Helper()
	vars := make([]*engine.IntVar, n)
	for i := range vars {
		v, err := s.NewIntVar(0, int64(n), fmt.Sprintf("x/%d", i))
		if err != nil {
			b.Fatalf("NewIntVar: %v", err)
		}
		vars[i] = v
	}
	return vars
}

// BenchmarkTrailUndo measures binding a block of 64 variables and
// rolling the trail back to the mark.
func BenchmarkTrailUndo(b *testing.B) {
	s := engine.NewSolver()
	vars := benchVars(b, s, 64)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mark := s.Mark()
		for j, v := range vars {
			if err := v.SetValue(int64(j)); err != nil {
				b.Fatalf("SetValue: %v", err)
			}
		}
		s.UndoTo(mark)
	}
}

// BenchmarkAllDifferentPropagation measures the fixpoint pass after one
// variable of a 64-wide all-different is bound.
func BenchmarkAllDifferentPropagation(b *testing.B) {
	s := engine.NewSolver()
	vars := benchVars(b, s, 64)
	s.Post(engine.NewAllDifferent(vars))
	if err := s.Propagate(); err != nil {
		b.Fatalf("Propagate: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mark := s.Mark()
		if err := vars[0].SetValue(int64(i % len(vars))); err != nil {
			b.Fatalf("SetValue: %v", err)
		}
		if err := s.Propagate(); err != nil {
			b.Fatalf("Propagate: %v", err)
		}
		s.UndoTo(mark)
	}
}

// BenchmarkPathCumulPropagation measures pushing cumul bounds along a
// freshly bound 32-node chain with unit transits.
func BenchmarkPathCumulPropagation(b *testing.B) {
	const n = 32
	s := engine.NewSolver()
	nexts := make([]*engine.IntVar, n)
	cumuls := make([]*engine.IntVar, n+1)
	transits := make([]*engine.IntVar, n)
	var err error
	for i := 0; i < n; i++ {
		if nexts[i], err = s.NewIntVar(0, n, fmt.Sprintf("next/%d", i)); err != nil {
			b.Fatalf("NewIntVar: %v", err)
		}
		if transits[i], err = s.NewIntVar(1, 1, fmt.Sprintf("transit/%d", i)); err != nil {
			b.Fatalf("NewIntVar: %v", err)
		}
	}
	for i := range cumuls {
		if cumuls[i], err = s.NewIntVar(0, n, fmt.Sprintf("cumul/%d", i)); err != nil {
			b.Fatalf("NewIntVar: %v", err)
		}
	}
	s.Post(engine.NewPathCumul(nexts, cumuls, transits))
	if err := s.Propagate(); err != nil {
		b.Fatalf("Propagate: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mark := s.Mark()
		for j := 0; j < n; j++ {
			if err := nexts[j].SetValue(int64(j + 1)); err != nil {
				b.Fatalf("SetValue: %v", err)
			}
		}
		if err := s.Propagate(); err != nil {
			b.Fatalf("Propagate: %v", err)
		}
		s.UndoTo(mark)
	}
}
