// Routing-oriented propagators.
//
// Each propagator re-derives its pruning from current domains on every
// wake (stateless), trading propagation strength and speed for trail
// simplicity. Wake conditions are chosen per constraint: value-based
// propagators watch bind events, bound-based ones watch any change.

package engine

// AllDifferent prunes on binds: once a variable is bound to v, v is
// removed from every other variable. This is the value-consistency
// strength path encodings need; no matching-based filtering.
type allDifferent struct {
	vars []*IntVar
}

// NewAllDifferent posts value-based all-different over vars.
func NewAllDifferent(vars []*IntVar) Constraint {
	return &allDifferent{vars: vars}
}

func (c *allDifferent) Post(s *Solver, id int) {
	for _, v := range c.vars {
		v.boundWatchers = append(v.boundWatchers, id)
	}
}

func (c *allDifferent) Propagate(_ *Solver) error {
	for i, v := range c.vars {
		if !v.Bound() {
			continue
		}
		value := v.Value()
		for j, w := range c.vars {
			if j == i {
				continue
			}
			if err := w.RemoveValue(value); err != nil {
				return err
			}
		}
	}
	return nil
}

// NoCycle forbids closed loops in the successor graph. A bound chain
// i -> next[i] -> ... must never return to i; self-loops (inactive
// nodes) are exempt, and values beyond len(nexts) are path sinks.
type noCycle struct {
	nexts []*IntVar
}

// NewNoCycle posts the no-cycle constraint over the successor variables.
func NewNoCycle(nexts []*IntVar) Constraint {
	return &noCycle{nexts: nexts}
}

func (c *noCycle) Post(s *Solver, id int) {
	for _, v := range c.nexts {
		v.boundWatchers = append(v.boundWatchers, id)
	}
}

func (c *noCycle) Propagate(_ *Solver) error {
	n := int64(len(c.nexts))
	for i := int64(0); i < n; i++ {
		v := c.nexts[i]
		if !v.Bound() || v.Value() == i {
			continue
		}
		cur := v.Value()
		for steps := int64(0); steps <= n; steps++ {
			if cur >= n {
				break // reached a sink (vehicle end)
			}
			if cur == i {
				return ErrFailed
			}
			nv := c.nexts[cur]
			if !nv.Bound() || nv.Value() == cur {
				break
			}
			cur = nv.Value()
		}
	}
	return nil
}

// PathCumul ties cumul[next[i]] == cumul[i] + transit[i] along every
// bound, non-self-loop arc. cumuls covers sinks too (len(nexts)+ends);
// transits is indexed like nexts.
type pathCumul struct {
	nexts    []*IntVar
	cumuls   []*IntVar
	transits []*IntVar
}

// NewPathCumul posts cumulative propagation along successor arcs.
func NewPathCumul(nexts, cumuls, transits []*IntVar) Constraint {
	return &pathCumul{nexts: nexts, cumuls: cumuls, transits: transits}
}

func (c *pathCumul) Post(s *Solver, id int) {
	for _, v := range c.nexts {
		v.boundWatchers = append(v.boundWatchers, id)
	}
	for _, v := range c.cumuls {
		v.rangeWatchers = append(v.rangeWatchers, id)
	}
	for _, v := range c.transits {
		v.rangeWatchers = append(v.rangeWatchers, id)
	}
}

func (c *pathCumul) Propagate(_ *Solver) error {
	for i, v := range c.nexts {
		if !v.Bound() {
			continue
		}
		j := v.Value()
		if j == int64(i) {
			continue
		}
		ci, cj, t := c.cumuls[i], c.cumuls[j], c.transits[i]
		if err := cj.SetMin(capAdd(ci.Min(), t.Min())); err != nil {
			return err
		}
		if err := cj.SetMax(capAdd(ci.Max(), t.Max())); err != nil {
			return err
		}
		if err := ci.SetMin(capSub(cj.Min(), t.Max())); err != nil {
			return err
		}
		if err := ci.SetMax(capSub(cj.Max(), t.Min())); err != nil {
			return err
		}
		if err := t.SetMin(capSub(cj.Min(), ci.Max())); err != nil {
			return err
		}
		if err := t.SetMax(capSub(cj.Max(), ci.Min())); err != nil {
			return err
		}
	}
	return nil
}

// LessOrEqual enforces x <= y.
type lessOrEqual struct {
	x, y *IntVar
}

// NewLessOrEqual posts x <= y.
func NewLessOrEqual(x, y *IntVar) Constraint {
	return &lessOrEqual{x: x, y: y}
}

func (c *lessOrEqual) Post(s *Solver, id int) {
	c.x.rangeWatchers = append(c.x.rangeWatchers, id)
	c.y.rangeWatchers = append(c.y.rangeWatchers, id)
}

func (c *lessOrEqual) Propagate(_ *Solver) error {
	if err := c.x.SetMax(c.y.Max()); err != nil {
		return err
	}
	return c.y.SetMin(c.x.Min())
}

// IsLessOrEqual reifies b <=> (x <= y).
type isLessOrEqual struct {
	x, y, b *IntVar
}

// NewIsLessOrEqual posts the reified comparison b <=> (x <= y).
func NewIsLessOrEqual(x, y, b *IntVar) Constraint {
	return &isLessOrEqual{x: x, y: y, b: b}
}

func (c *isLessOrEqual) Post(s *Solver, id int) {
	c.x.rangeWatchers = append(c.x.rangeWatchers, id)
	c.y.rangeWatchers = append(c.y.rangeWatchers, id)
	c.b.boundWatchers = append(c.b.boundWatchers, id)
}

func (c *isLessOrEqual) Propagate(_ *Solver) error {
	if c.b.Bound() {
		if c.b.Value() == 1 {
			if err := c.x.SetMax(c.y.Max()); err != nil {
				return err
			}
			return c.y.SetMin(c.x.Min())
		}
		// b == 0: x > y
		if err := c.x.SetMin(capAdd(c.y.Min(), 1)); err != nil {
			return err
		}
		return c.y.SetMax(capSub(c.x.Max(), 1))
	}
	if c.x.Max() <= c.y.Min() {
		return c.b.SetValue(1)
	}
	if c.x.Min() > c.y.Max() {
		return c.b.SetValue(0)
	}
	return nil
}

// IsDifferentCst reifies b <=> (v != cst). The routing layer uses it to
// tie active[i] to next[i] != i and to vehicle[i] != -1.
type isDifferentCst struct {
	v   *IntVar
	cst int64
	b   *IntVar
}

// NewIsDifferentCst posts b <=> (v != cst).
func NewIsDifferentCst(v *IntVar, cst int64, b *IntVar) Constraint {
	return &isDifferentCst{v: v, cst: cst, b: b}
}

func (c *isDifferentCst) Post(s *Solver, id int) {
	c.v.rangeWatchers = append(c.v.rangeWatchers, id)
	c.b.boundWatchers = append(c.b.boundWatchers, id)
}

func (c *isDifferentCst) Propagate(_ *Solver) error {
	if c.b.Bound() {
		if c.b.Value() == 0 {
			return c.v.SetValue(c.cst)
		}
		return c.v.RemoveValue(c.cst)
	}
	if c.v.Bound() {
		if c.v.Value() == c.cst {
			return c.b.SetValue(0)
		}
		return c.b.SetValue(1)
	}
	if !c.v.Contains(c.cst) {
		return c.b.SetValue(1)
	}
	return nil
}

// BoolProduct enforces target == x * b for a boolean b. Cost terms use
// it to zero out the arc cost of inactive nodes.
type boolProduct struct {
	target, x, b *IntVar
}

// NewBoolProduct posts target == x * b, b in {0,1}.
func NewBoolProduct(target, x, b *IntVar) Constraint {
	return &boolProduct{target: target, x: x, b: b}
}

func (c *boolProduct) Post(s *Solver, id int) {
	c.target.rangeWatchers = append(c.target.rangeWatchers, id)
	c.x.rangeWatchers = append(c.x.rangeWatchers, id)
	c.b.boundWatchers = append(c.b.boundWatchers, id)
}

func (c *boolProduct) Propagate(_ *Solver) error {
	if c.b.Bound() {
		if c.b.Value() == 0 {
			return c.target.SetValue(0)
		}
		if err := c.target.SetRange(c.x.Min(), c.x.Max()); err != nil {
			return err
		}
		return c.x.SetRange(c.target.Min(), c.target.Max())
	}
	lo, hi := c.x.Min(), c.x.Max()
	if lo > 0 {
		lo = 0
	}
	if hi < 0 {
		hi = 0
	}
	if err := c.target.SetRange(lo, hi); err != nil {
		return err
	}
	// target proven nonzero forces b=1
	if c.target.Min() > 0 || c.target.Max() < 0 {
		return c.b.SetValue(1)
	}
	return nil
}

// SumEquals enforces total == sum(terms), with bounds propagation in
// both directions.
type sumEquals struct {
	terms []*IntVar
	total *IntVar
}

// NewSumEquals posts total == sum(terms).
func NewSumEquals(terms []*IntVar, total *IntVar) Constraint {
	return &sumEquals{terms: terms, total: total}
}

func (c *sumEquals) Post(s *Solver, id int) {
	for _, v := range c.terms {
		v.rangeWatchers = append(v.rangeWatchers, id)
	}
	c.total.rangeWatchers = append(c.total.rangeWatchers, id)
}

func (c *sumEquals) Propagate(_ *Solver) error {
	var minSum, maxSum int64
	for _, v := range c.terms {
		minSum = capAdd(minSum, v.Min())
		maxSum = capAdd(maxSum, v.Max())
	}
	if err := c.total.SetRange(minSum, maxSum); err != nil {
		return err
	}
	// term_i >= total.Min - sum(max_j, j != i), and symmetrically
	for _, v := range c.terms {
		restMax := capSub(maxSum, v.Max())
		restMin := capSub(minSum, v.Min())
		if err := v.SetMin(capSub(c.total.Min(), restMax)); err != nil {
			return err
		}
		if err := v.SetMax(capSub(c.total.Max(), restMin)); err != nil {
			return err
		}
	}
	return nil
}
