package localsearch

import (
	"time"

	log "github.com/golang/glog"

	"github.com/katalvlaran/lvroute/engine"
)

// defaultMaxSweeps caps the neighborhood restarts a metaheuristic may
// request at local optima when the caller sets no explicit cap.
const defaultMaxSweeps = 64

// Options configures an Improve run.
type Options struct {
	// Filters screen candidates before they are propagated.
	Filters []Filter
	// Meta steers acceptance; nil means descent with step one.
	Meta Metaheuristic
	// Limit bounds the run. TimeLimit is the wall clock for the whole
	// improvement, Solutions caps the number of accepted candidates.
	Limit engine.SearchLimit
	// LNSLimit caps each completion solve of a candidate that releases
	// variables. Zero leaves only the run deadline.
	LNSLimit time.Duration
	// MaxSweeps caps neighborhood restarts after local optima; zero
	// means defaultMaxSweeps.
	MaxSweeps int
}

// Improve runs first-accepted local search from initial. Every
// candidate produced by op is screened by the filters, completed and
// evaluated by a nested solve under finalize, and judged by the
// metaheuristic; accepted candidates become the new committed solution
// and restart the neighborhood. The best solution found is returned
// together with whether it improves on initial. The solver is left at
// its entry state.
//
// initial must register every variable op touches plus the objective;
// finalize must bind whatever a releasing move leaves open.
func Improve(solver *engine.Solver, initial *engine.Assignment, op Operator, finalize engine.DecisionBuilder, opts Options) (*engine.Assignment, bool) {
	meta := opts.Meta
	if meta == nil {
		meta = NewDescent(1)
	}
	maxSweeps := opts.MaxSweeps
	if maxSweeps <= 0 {
		maxSweeps = defaultMaxSweeps
	}
	var deadline time.Time
	if opts.Limit.TimeLimit > 0 {
		deadline = time.Now().Add(opts.Limit.TimeLimit)
	}

	incumbent := initial.Copy()
	if !incumbent.HasObjectiveValue() {
		// cost the initial solution before improving on it
		evaluated, ok := evaluate(solver, incumbent, nil, finalize, costInfinity, deadline, 0)
		if !ok {
			return nil, false
		}
		incumbent = evaluated
	}
	cost := incumbent.ObjectiveValue()
	baseline := cost
	best := incumbent
	bestCost := cost

	op.Synchronize(incumbent)
	synchronizeAll(opts.Filters, incumbent)
	meta.Synchronize(incumbent, cost)

	delta := NewDelta()
	var accepted, candidates int64
	sweeps := 0
	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		if opts.Limit.Solutions > 0 && accepted >= opts.Limit.Solutions {
			break
		}
		if !op.MakeNextNeighbor(delta) {
			if sweeps >= maxSweeps || !meta.OnLocalOptimum() {
				break
			}
			sweeps++
			op.Synchronize(incumbent)
			continue
		}
		if delta.Empty() || !acceptAll(opts.Filters, delta) {
			continue
		}
		candidates++
		candidate, ok := evaluate(solver, incumbent, delta, finalize, meta.Bound(), deadline, opts.LNSLimit)
		if !ok {
			continue
		}
		candidateCost := candidate.ObjectiveValue()
		if !meta.Accept(delta, candidate, candidateCost) {
			continue
		}
		incumbent = candidate
		cost = candidateCost
		accepted++
		if cost < bestCost {
			best = incumbent
			bestCost = cost
		}
		op.Synchronize(incumbent)
		synchronizeAll(opts.Filters, incumbent)
		meta.Synchronize(incumbent, cost)
	}
	if log.V(1) {
		log.Infof("local search done: cost %d -> %d, %d/%d candidates accepted, %d sweeps",
			baseline, bestCost, accepted, candidates, sweeps)
	}
	return best, bestCost < baseline
}

// boundObjective caps the objective before any other decision. Refuting
// the cap fails the branch; there is no solution above it worth having.
type boundObjective struct {
	obj   *engine.IntVar
	bound int64
}

func (b *boundObjective) Next(_ *engine.Search) (engine.Decision, error) {
	if b.obj == nil || b.obj.Max() <= b.bound {
		return nil, nil
	}
	return b, nil
}

func (b *boundObjective) Apply(_ *engine.Search) error  { return b.obj.SetMax(b.bound) }
func (b *boundObjective) Refute(_ *engine.Search) error { return engine.ErrFailed }

// evaluate builds the candidate assignment (incumbent overlaid with the
// delta, released variables left open), completes it with a nested
// solve and returns the stored solution. A nil delta evaluates the
// incumbent itself.
func evaluate(solver *engine.Solver, incumbent *engine.Assignment, delta *Delta, finalize engine.DecisionBuilder, bound int64, deadline time.Time, lnsLimit time.Duration) (*engine.Assignment, bool) {
	target := engine.NewAssignment()
	for _, v := range incumbent.Vars() {
		if delta != nil && delta.Freed(v) {
			continue
		}
		if delta != nil {
			if value, ok := delta.Value(v); ok {
				target.SetValue(v, value)
				continue
			}
		}
		if incumbent.HasValue(v) {
			target.SetValue(v, incumbent.Value(v))
		}
	}
	if delta != nil {
		// moves may touch variables outside the incumbent's template
		for _, ch := range delta.Changes() {
			if !target.Contains(ch.Var) {
				target.SetValue(ch.Var, ch.Value)
			}
		}
	}

	db := engine.DecisionBuilder(engine.NewRestoreAssignment(target))
	if finalize != nil {
		db = engine.NewCompose(db, finalize)
	}
	if obj := incumbent.Objective(); obj != nil && bound < costInfinity {
		db = engine.NewCompose(&boundObjective{obj: obj, bound: bound}, db)
	}

	limit := engine.SearchLimit{Solutions: 1}
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		limit.TimeLimit = remaining
	}
	if delta != nil && delta.HasFreed() && lnsLimit > 0 {
		if limit.TimeLimit == 0 || lnsLimit < limit.TimeLimit {
			limit.TimeLimit = lnsLimit
		}
	}

	collector := engine.NewSolutionCollector(incumbent)
	if found, _ := engine.Solve(solver, db, collector, limit); !found {
		return nil, false
	}
	candidate := collector.Best()
	if candidate == nil || !candidate.HasObjectiveValue() {
		return nil, false
	}
	return candidate, true
}
