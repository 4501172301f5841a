// Element constraints bind a target variable to a function of one or
// two index variables. The "light" variants only fire once the indices
// are bound, which is all local search needs (deltas arrive with bound
// successors); the full variants additionally prune index domains and
// are used when constructing solutions by propagation.

package engine

// lightElement binds target = fn(index) once index is bound.
type lightElement struct {
	target *IntVar
	index  *IntVar
	fn     func(int64) int64
}

// NewLightElement posts target == fn(index), propagating only when
// index becomes bound.
func NewLightElement(target, index *IntVar, fn func(int64) int64) Constraint {
	return &lightElement{target: target, index: index, fn: fn}
}

func (c *lightElement) Post(s *Solver, id int) {
	c.index.boundWatchers = append(c.index.boundWatchers, id)
}

func (c *lightElement) Propagate(_ *Solver) error {
	if !c.index.Bound() {
		return nil
	}
	return c.target.SetValue(c.fn(c.index.Value()))
}

// element is the full version: it narrows target to the envelope of fn
// over the index domain and removes index values mapping outside the
// target range.
type element struct {
	target *IntVar
	index  *IntVar
	fn     func(int64) int64
}

// NewElement posts target == fn(index) with index pruning.
func NewElement(target, index *IntVar, fn func(int64) int64) Constraint {
	return &element{target: target, index: index, fn: fn}
}

func (c *element) Post(s *Solver, id int) {
	c.index.rangeWatchers = append(c.index.rangeWatchers, id)
	c.target.rangeWatchers = append(c.target.rangeWatchers, id)
}

func (c *element) Propagate(_ *Solver) error {
	lo, hi := int64max, int64min
	c.index.IterateValues(func(v int64) bool {
		e := c.fn(v)
		if e < lo {
			lo = e
		}
		if e > hi {
			hi = e
		}
		return true
	})
	if lo > hi {
		return ErrFailed
	}
	if err := c.target.SetRange(lo, hi); err != nil {
		return err
	}
	tmin, tmax := c.target.Min(), c.target.Max()
	var toRemove []int64
	c.index.IterateValues(func(v int64) bool {
		if e := c.fn(v); e < tmin || e > tmax {
			toRemove = append(toRemove, v)
		}
		return true
	})
	for _, v := range toRemove {
		if err := c.index.RemoveValue(v); err != nil {
			return err
		}
	}
	return nil
}

// lightElement2 binds target = fn(i1, i2) once both indices are bound.
type lightElement2 struct {
	target *IntVar
	i1, i2 *IntVar
	fn     func(int64, int64) int64
}

// NewLightElement2 posts target == fn(i1, i2), propagating only when
// both indices become bound.
func NewLightElement2(target, i1, i2 *IntVar, fn func(int64, int64) int64) Constraint {
	return &lightElement2{target: target, i1: i1, i2: i2, fn: fn}
}

func (c *lightElement2) Post(s *Solver, id int) {
	c.i1.boundWatchers = append(c.i1.boundWatchers, id)
	c.i2.boundWatchers = append(c.i2.boundWatchers, id)
}

func (c *lightElement2) Propagate(_ *Solver) error {
	if !c.i1.Bound() || !c.i2.Bound() {
		return nil
	}
	return c.target.SetValue(c.fn(c.i1.Value(), c.i2.Value()))
}

// element2 narrows target to the envelope of fn over the cartesian
// product of the two index domains, pruning an index only when the
// other is bound. Index domains here are small (successors, vehicles).
type element2 struct {
	target *IntVar
	i1, i2 *IntVar
	fn     func(int64, int64) int64
}

// NewElement2 posts target == fn(i1, i2) with index pruning.
func NewElement2(target, i1, i2 *IntVar, fn func(int64, int64) int64) Constraint {
	return &element2{target: target, i1: i1, i2: i2, fn: fn}
}

func (c *element2) Post(s *Solver, id int) {
	c.i1.rangeWatchers = append(c.i1.rangeWatchers, id)
	c.i2.rangeWatchers = append(c.i2.rangeWatchers, id)
	c.target.rangeWatchers = append(c.target.rangeWatchers, id)
}

func (c *element2) Propagate(_ *Solver) error {
	lo, hi := int64max, int64min
	c.i1.IterateValues(func(a int64) bool {
		c.i2.IterateValues(func(b int64) bool {
			e := c.fn(a, b)
			if e < lo {
				lo = e
			}
			if e > hi {
				hi = e
			}
			return true
		})
		return true
	})
	if lo > hi {
		return ErrFailed
	}
	if err := c.target.SetRange(lo, hi); err != nil {
		return err
	}
	tmin, tmax := c.target.Min(), c.target.Max()
	if c.i2.Bound() {
		if err := c.pruneIndex(c.i1, func(a int64) int64 { return c.fn(a, c.i2.Value()) }, tmin, tmax); err != nil {
			return err
		}
	}
	if c.i1.Bound() {
		if err := c.pruneIndex(c.i2, func(b int64) int64 { return c.fn(c.i1.Value(), b) }, tmin, tmax); err != nil {
			return err
		}
	}
	return nil
}

func (c *element2) pruneIndex(index *IntVar, eval func(int64) int64, tmin, tmax int64) error {
	var toRemove []int64
	index.IterateValues(func(v int64) bool {
		if e := eval(v); e < tmin || e > tmax {
			toRemove = append(toRemove, v)
		}
		return true
	})
	for _, v := range toRemove {
		if err := index.RemoveValue(v); err != nil {
			return err
		}
	}
	return nil
}
