package engine

// Decision is one binary choice point in the search tree. Apply commits
// the choice, Refute commits its negation; both run under the search's
// trail and are undone by backtracking, not by the decision itself.
type Decision interface {
	Apply(s *Search) error
	Refute(s *Search) error
}

// DecisionBuilder produces the next decision for the current solver
// state. Returning (nil, nil) means the builder considers the state
// complete; returning an error fails the current branch.
//
// Builders must be stateless across calls: everything they need is
// re-derived from variable domains, so backtracking needs no hooks.
type DecisionBuilder interface {
	Next(s *Search) (Decision, error)
}

// VarStrategy selects which unbound variable a phase binds next.
type VarStrategy int

const (
	// ChooseFirstUnbound picks the lowest-index unbound variable.
	ChooseFirstUnbound VarStrategy = iota
	// ChoosePath extends a partial successor chain: it prefers the
	// variable pointed at by an already bound variable, falling back to
	// the first unbound one.
	ChoosePath
	// ChooseGlobalBest scans all (variable, value) pairs and picks the
	// globally cheapest according to the phase evaluator.
	ChooseGlobalBest
)

// ValueEvaluator scores assigning value to vars[varIndex]; lower is
// better. A nil evaluator means "assign the domain minimum".
type ValueEvaluator func(varIndex int, value int64) int64

// assign is the basic decision: v == value on apply, v != value on
// refutation.
type assign struct {
	v     *IntVar
	value int64
}

func (d *assign) Apply(_ *Search) error  { return d.v.SetValue(d.value) }
func (d *assign) Refute(_ *Search) error { return d.v.RemoveValue(d.value) }

// phase assigns a slice of variables one decision at a time.
type phase struct {
	vars     []*IntVar
	strategy VarStrategy
	eval     ValueEvaluator
}

// NewPhase returns a builder binding vars with the given variable
// selection strategy and value evaluator.
func NewPhase(vars []*IntVar, strategy VarStrategy, eval ValueEvaluator) DecisionBuilder {
	return &phase{vars: vars, strategy: strategy, eval: eval}
}

func (p *phase) Next(_ *Search) (Decision, error) {
	i := p.selectVar()
	if i < 0 {
		return nil, nil
	}
	if p.strategy == ChooseGlobalBest {
		return p.globalBest()
	}
	v := p.vars[i]
	value := v.Min()
	if p.eval != nil {
		best := int64max
		v.IterateValues(func(w int64) bool {
			if c := p.eval(i, w); c < best {
				best = c
				value = w
			}
			return true
		})
	}
	return &assign{v: p.vars[i], value: value}, nil
}

func (p *phase) selectVar() int {
	first := -1
	for i, v := range p.vars {
		if v.Bound() {
			continue
		}
		if first < 0 {
			first = i
		}
		if p.strategy != ChoosePath {
			return i
		}
	}
	if first < 0 || p.strategy != ChoosePath {
		return first
	}
	// Prefer the head of an open chain: an unbound variable some bound
	// variable points at.
	for _, v := range p.vars {
		if !v.Bound() {
			continue
		}
		w := v.Value()
		if w >= 0 && w < int64(len(p.vars)) && !p.vars[w].Bound() {
			return int(w)
		}
	}
	return first
}

func (p *phase) globalBest() (Decision, error) {
	bestCost := int64max
	bestVar := -1
	var bestValue int64
	for i, v := range p.vars {
		if v.Bound() {
			continue
		}
		v.IterateValues(func(w int64) bool {
			if c := p.eval(i, w); c < bestCost {
				bestCost = c
				bestVar = i
				bestValue = w
			}
			return true
		})
	}
	if bestVar < 0 {
		return nil, nil
	}
	return &assign{v: p.vars[bestVar], value: bestValue}, nil
}

// compose chains builders: each is driven to completion before the next
// one runs. Because builders are stateless, earlier children are simply
// re-queried after backtracking.
type compose struct {
	children []DecisionBuilder
}

// NewCompose returns a builder running children in sequence.
func NewCompose(children ...DecisionBuilder) DecisionBuilder {
	return &compose{children: children}
}

func (c *compose) Next(s *Search) (Decision, error) {
	for _, child := range c.children {
		d, err := child.Next(s)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	return nil, nil
}

// restoreAssignment replays the stored values of an assignment. It is a
// single decision binding every stored variable; refuting it fails the
// branch, as there is no meaningful negation of a preassignment.
type restoreAssignment struct {
	assignment *Assignment
}

// NewRestoreAssignment returns a builder that binds every variable the
// assignment stores a value for.
func NewRestoreAssignment(a *Assignment) DecisionBuilder {
	return &restoreAssignment{assignment: a}
}

func (r *restoreAssignment) Next(_ *Search) (Decision, error) {
	done := true
	for slot, v := range r.assignment.vars {
		if !r.assignment.set[slot] {
			continue
		}
		if !v.Bound() || v.Value() != r.assignment.values[slot] {
			done = false
			break
		}
	}
	if done {
		return nil, nil
	}
	return &restoreDecision{assignment: r.assignment}, nil
}

type restoreDecision struct {
	assignment *Assignment
}

func (d *restoreDecision) Apply(_ *Search) error {
	for slot, v := range d.assignment.vars {
		if !d.assignment.set[slot] {
			continue
		}
		if err := v.SetValue(d.assignment.values[slot]); err != nil {
			return err
		}
	}
	return nil
}

func (d *restoreDecision) Refute(_ *Search) error { return ErrFailed }

// try attempts alternatives in order: each is run as a nested solve
// from the current state, and the first full solution found is replayed
// into the main search. Alternatives are expected to bind the same
// variable set, with cheap one-shot builders first.
type try struct {
	alternatives []DecisionBuilder
}

// NewTry returns a builder falling back through alternatives.
func NewTry(alternatives ...DecisionBuilder) DecisionBuilder {
	return &try{alternatives: alternatives}
}

func (t *try) Next(s *Search) (Decision, error) {
	for _, alt := range t.alternatives {
		sol, progressed, found := s.nestedFirstSolution(alt)
		if !progressed {
			// The alternative considers the current state complete.
			return nil, nil
		}
		if found {
			return &restoreDecision{assignment: sol}, nil
		}
	}
	return nil, ErrFailed
}
