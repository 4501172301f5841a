package localsearch

import "github.com/katalvlaran/lvroute/engine"

// Change is one proposed variable assignment inside a Delta.
type Change struct {
	Var   *engine.IntVar
	Value int64
}

// Delta is a sparse candidate move: values to assign on top of the
// committed solution, plus variables released for re-optimization by
// large neighborhood moves. A released variable is left unbound when
// the candidate is applied and a nested solve decides it.
type Delta struct {
	changes []Change
	index   map[*engine.IntVar]int
	freed   map[*engine.IntVar]struct{}
}

// NewDelta returns an empty delta.
func NewDelta() *Delta {
	return &Delta{
		index: make(map[*engine.IntVar]int),
		freed: make(map[*engine.IntVar]struct{}),
	}
}

// Reset clears the delta for reuse.
func (d *Delta) Reset() {
	d.changes = d.changes[:0]
	for k := range d.index {
		delete(d.index, k)
	}
	for k := range d.freed {
		delete(d.freed, k)
	}
}

// SetValue records v == value; the last write per variable wins.
func (d *Delta) SetValue(v *engine.IntVar, value int64) {
	if slot, ok := d.index[v]; ok {
		d.changes[slot].Value = value
		return
	}
	delete(d.freed, v)
	d.index[v] = len(d.changes)
	d.changes = append(d.changes, Change{Var: v, Value: value})
}

// Free releases v: the candidate leaves it unbound for a nested solve.
// Freeing overrides any previously recorded value.
func (d *Delta) Free(v *engine.IntVar) {
	if slot, ok := d.index[v]; ok {
		last := len(d.changes) - 1
		d.changes[slot] = d.changes[last]
		d.index[d.changes[slot].Var] = slot
		d.changes = d.changes[:last]
		delete(d.index, v)
	}
	d.freed[v] = struct{}{}
}

// Value returns the recorded value for v, if any.
func (d *Delta) Value(v *engine.IntVar) (int64, bool) {
	slot, ok := d.index[v]
	if !ok {
		return 0, false
	}
	return d.changes[slot].Value, true
}

// Freed reports whether v is released by this delta.
func (d *Delta) Freed(v *engine.IntVar) bool {
	_, ok := d.freed[v]
	return ok
}

// Changes returns the recorded assignments. The slice is owned by the
// delta and only valid until the next Reset.
func (d *Delta) Changes() []Change { return d.changes }

// FreedVars calls fn for every released variable.
func (d *Delta) FreedVars(fn func(v *engine.IntVar)) {
	for v := range d.freed {
		fn(v)
	}
}

// Empty reports whether the delta neither changes nor frees anything.
func (d *Delta) Empty() bool {
	return len(d.changes) == 0 && len(d.freed) == 0
}

// HasFreed reports whether the delta releases at least one variable.
func (d *Delta) HasFreed() bool { return len(d.freed) > 0 }
