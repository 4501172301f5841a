// Solver core: variable arena, undo trail, propagation queue.
//
// Design:
//   - Variables live in a flat arena owned by the Solver; their ids index
//     every side table (watcher lists, queue membership).
//   - The trail is a slice of fixed-size records. A mark is a length;
//     undoTo truncates back to it, reversing each record.
//   - Propagation is a FIFO of constraint ids with an in-queue bitmap;
//     a constraint is re-enqueued at most once per wake, so the fixpoint
//     loop is O(changes x propagator cost) per decision.
//
// Contracts:
//   - Not safe for concurrent use. The search driver is the only caller.
//   - Mutating a variable outside propagate/decision application is legal
//     before search starts (model building) and undone like any other
//     write afterwards.

package engine

import (
	log "github.com/golang/glog"
)

// Solver owns variables, constraints and the undo trail. Zero value is
// not usable; always construct through NewSolver.
type Solver struct {
	vars  []*IntVar
	cons  []Constraint
	trail []undoRecord

	queue   []int
	inQueue []bool

	// lifetime counters, exposed for tests and search statistics
	failures int64
}

// NewSolver returns an empty solver.
func NewSolver() *Solver {
	return &Solver{}
}

// NumVars reports how many variables have been created.
func (s *Solver) NumVars() int { return len(s.vars) }

// Var returns the id-th variable. Ids are dense creation order.
func (s *Solver) Var(id int) *IntVar { return s.vars[id] }

// Failures reports how many times propagation or decision application
// wiped out a domain since the solver was created.
func (s *Solver) Failures() int64 { return s.failures }

// Post registers a constraint and hooks its watchers. The constraint is
// not propagated yet; call Propagate (or start a search, which does an
// initial propagation) once the model is complete.
func (s *Solver) Post(c Constraint) {
	id := len(s.cons)
	s.cons = append(s.cons, c)
	s.inQueue = append(s.inQueue, false)
	c.Post(s, id)
	s.enqueue(id)
}

// Propagate runs the pending constraint queue to fixpoint. Returns
// ErrFailed when some domain wipes out; the caller owns the trail mark
// and decides how far to unwind.
func (s *Solver) Propagate() error {
	for len(s.queue) > 0 {
		id := s.queue[0]
		s.queue = s.queue[1:]
		s.inQueue[id] = false
		if err := s.cons[id].Propagate(s); err != nil {
			s.clearQueue()
			s.failures++
			return err
		}
	}
	return nil
}

// Mark returns the current trail position. Pair with UndoTo.
func (s *Solver) Mark() int { return len(s.trail) }

// UndoTo reverses every write made after mark, most recent first, and
// drops any pending propagation.
func (s *Solver) UndoTo(mark int) {
	if mark > len(s.trail) {
		log.Fatalf("engine: undo mark %d beyond trail length %d", mark, len(s.trail))
	}
	for i := len(s.trail) - 1; i >= mark; i-- {
		rec := s.trail[i]
		v := s.vars[rec.varID]
		switch rec.kind {
		case undoMin:
			v.min = rec.value
		case undoMax:
			v.max = rec.value
		case undoRemove:
			delete(v.removed, rec.value)
		}
	}
	s.trail = s.trail[:mark]
	s.clearQueue()
}

func (s *Solver) clearQueue() {
	for _, id := range s.queue {
		s.inQueue[id] = false
	}
	s.queue = s.queue[:0]
}

func (s *Solver) enqueue(id int) {
	if s.inQueue[id] {
		return
	}
	s.inQueue[id] = true
	s.queue = append(s.queue, id)
}

// onChange wakes watchers after v's domain shrank. bound reports whether
// the change left v with a single value.
func (s *Solver) onChange(v *IntVar, bound bool) {
	for _, id := range v.rangeWatchers {
		s.enqueue(id)
	}
	if bound {
		for _, id := range v.boundWatchers {
			s.enqueue(id)
		}
	}
}

// undo trail records

type undoKind uint8

const (
	undoMin undoKind = iota
	undoMax
	undoRemove
)

type undoRecord struct {
	kind  undoKind
	varID int32
	value int64
}

func (s *Solver) trailMin(v *IntVar) {
	s.trail = append(s.trail, undoRecord{kind: undoMin, varID: int32(v.id), value: v.min})
}

func (s *Solver) trailMax(v *IntVar) {
	s.trail = append(s.trail, undoRecord{kind: undoMax, varID: int32(v.id), value: v.max})
}

func (s *Solver) trailRemove(v *IntVar, value int64) {
	s.trail = append(s.trail, undoRecord{kind: undoRemove, varID: int32(v.id), value: value})
}

// Constraint is the propagator capability surface. Post hooks watchers
// (which variable events re-enqueue the constraint); Propagate prunes
// domains for the current state and returns ErrFailed on wipeout.
//
// Propagators must be stateless across calls: everything they know is
// re-derivable from current domains, so the trail alone restores any
// earlier search state.
type Constraint interface {
	Post(s *Solver, id int)
	Propagate(s *Solver) error
}
