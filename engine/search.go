package engine

import (
	"errors"
	"time"

	log "github.com/golang/glog"
)

// SearchLimit bounds a solve. Zero fields mean unlimited.
type SearchLimit struct {
	TimeLimit time.Duration
	Branches  int64
	Failures  int64
	Solutions int64
}

// errLimit aborts the search tree walk without refuting; it never
// escapes Solve.
var errLimit = errors.New("engine: limit reached")

// SolutionCollector keeps the best solution seen by a search. Solutions
// are compared on the objective value of the template assignment; with
// no objective declared the first solution is kept.
type SolutionCollector struct {
	template *Assignment
	best     *Assignment
	count    int
}

// NewSolutionCollector returns a best-value collector capturing the
// variables registered in template.
func NewSolutionCollector(template *Assignment) *SolutionCollector {
	return &SolutionCollector{template: template}
}

// Collect snapshots the current solver state and keeps it if better.
func (c *SolutionCollector) Collect() {
	snap := c.template.Copy()
	snap.Store()
	c.count++
	if c.best == nil {
		c.best = snap
		return
	}
	if snap.HasObjectiveValue() && snap.ObjectiveValue() < c.best.ObjectiveValue() {
		c.best = snap
	}
}

// Best returns the best collected assignment, nil if none.
func (c *SolutionCollector) Best() *Assignment { return c.best }

// Count returns the number of solutions collected.
func (c *SolutionCollector) Count() int { return c.count }

// Search carries the per-solve state: limits, counters and the solver
// under exploration.
type Search struct {
	solver    *Solver
	collector *SolutionCollector
	limit     SearchLimit
	deadline  time.Time

	branches  int64
	failures  int64
	solutions int64
	checks    uint32
}

// Solver returns the solver being searched.
func (s *Search) Solver() *Solver { return s.solver }

// Branches returns the number of decisions applied or refuted so far.
func (s *Search) Branches() int64 { return s.branches }

// Failures returns the number of failed branches so far.
func (s *Search) Failures() int64 { return s.failures }

// Solve runs a depth-first search driven by db, recording every full
// solution into collector. The solver is always rewound to its entry
// state; results are only visible through the collector. It reports
// whether at least one solution was found and whether a limit stopped
// the search early.
func Solve(solver *Solver, db DecisionBuilder, collector *SolutionCollector, limit SearchLimit) (found, limited bool) {
	s := &Search{solver: solver, collector: collector, limit: limit}
	if limit.TimeLimit > 0 {
		s.deadline = time.Now().Add(limit.TimeLimit)
	}
	mark := solver.Mark()
	defer solver.UndoTo(mark)
	if err := solver.Propagate(); err != nil {
		log.V(2).Infof("root propagation failed: %v", err)
		return false, false
	}
	err := s.explore(db)
	if log.V(1) {
		log.Infof("search done: %d solutions, %d branches, %d failures",
			s.solutions, s.branches, s.failures)
	}
	return s.solutions > 0, errors.Is(err, errLimit)
}

// explore walks the subtree below the current state. A nil return means
// the subtree is exhausted; errLimit aborts the whole walk.
func (s *Search) explore(db DecisionBuilder) error {
	if err := s.checkLimit(); err != nil {
		return err
	}
	d, err := db.Next(s)
	if err != nil {
		s.failures++
		return nil
	}
	if d == nil {
		s.solutions++
		if s.collector != nil {
			s.collector.Collect()
		}
		if s.limit.Solutions > 0 && s.solutions >= s.limit.Solutions {
			return errLimit
		}
		return nil
	}

	mark := s.solver.Mark()
	s.branches++
	if d.Apply(s) == nil && s.solver.Propagate() == nil {
		if err := s.explore(db); err != nil {
			return err
		}
	} else {
		s.failures++
	}
	s.solver.UndoTo(mark)

	s.branches++
	if d.Refute(s) != nil || s.solver.Propagate() != nil {
		s.failures++
		return nil
	}
	return s.explore(db)
}

// nestedFirstSolution runs db from the current state until its first
// full solution, captures every bound variable, and rewinds. progressed
// is false when db had nothing to decide at the current state.
func (s *Search) nestedFirstSolution(db DecisionBuilder) (sol *Assignment, progressed, found bool) {
	mark := s.solver.Mark()
	defer s.solver.UndoTo(mark)
	if s.solver.Propagate() != nil {
		return nil, true, false
	}
	d, err := db.Next(s)
	if err != nil {
		return nil, true, false
	}
	if d == nil {
		return nil, false, false
	}
	sol = s.exploreFirst(db, d)
	return sol, true, sol != nil
}

// exploreFirst is the first-solution variant of explore, starting from
// an already produced decision.
func (s *Search) exploreFirst(db DecisionBuilder, d Decision) *Assignment {
	for {
		if s.checkLimit() != nil {
			return nil
		}
		if d == nil {
			return s.captureAll()
		}
		mark := s.solver.Mark()
		s.branches++
		if d.Apply(s) == nil && s.solver.Propagate() == nil {
			next, err := db.Next(s)
			if err == nil {
				if sol := s.exploreFirst(db, next); sol != nil {
					return sol
				}
			} else {
				s.failures++
			}
		} else {
			s.failures++
		}
		s.solver.UndoTo(mark)
		s.branches++
		if d.Refute(s) != nil || s.solver.Propagate() != nil {
			s.failures++
			return nil
		}
		next, err := db.Next(s)
		if err != nil {
			s.failures++
			return nil
		}
		d = next
	}
}

// captureAll snapshots every bound solver variable.
func (s *Search) captureAll() *Assignment {
	a := NewAssignment()
	for _, v := range s.solver.vars {
		if v.Bound() {
			a.SetValue(v, v.Value())
		}
	}
	return a
}

// checkLimit enforces the search limits. Wall-clock checks are
// throttled; branch and failure counters are cheap and exact.
func (s *Search) checkLimit() error {
	if s.limit.Branches > 0 && s.branches >= s.limit.Branches {
		return errLimit
	}
	if s.limit.Failures > 0 && s.failures >= s.limit.Failures {
		return errLimit
	}
	if !s.deadline.IsZero() {
		s.checks++
		if s.checks&63 == 0 && time.Now().After(s.deadline) {
			return errLimit
		}
	}
	return nil
}
