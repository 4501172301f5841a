package localsearch

import "github.com/katalvlaran/lvroute/engine"

// Filter screens candidate moves before the engine propagates them.
// Accept must be side-effect free with respect to the solver; filters
// read only the delta and the state captured by Synchronize.
//
// Deltas that release variables are accepted unseen: their effect is
// only known after the nested solve completes, so filters cannot judge
// them. The propagation engine remains the authority in that case.
type Filter interface {
	Accept(delta *Delta) bool
	Synchronize(a *engine.Assignment)
}

// VariableDomainFilter rejects any change whose value is outside the
// current root domain of its variable. It is the cheapest screen and
// runs first in every stack.
type VariableDomainFilter struct{}

// NewVariableDomainFilter returns the domain screen.
func NewVariableDomainFilter() *VariableDomainFilter { return &VariableDomainFilter{} }

// Accept checks every recorded change against its variable's domain.
func (f *VariableDomainFilter) Accept(delta *Delta) bool {
	if delta.HasFreed() {
		return true
	}
	for _, ch := range delta.Changes() {
		if !ch.Var.Contains(ch.Value) {
			return false
		}
	}
	return true
}

// Synchronize is a no-op; domains are read live.
func (f *VariableDomainFilter) Synchronize(_ *engine.Assignment) {}

// acceptAll runs a filter stack in order, with releasing deltas passing
// unconditionally.
func acceptAll(filters []Filter, delta *Delta) bool {
	if delta.HasFreed() {
		return true
	}
	for _, f := range filters {
		if !f.Accept(delta) {
			return false
		}
	}
	return true
}

func synchronizeAll(filters []Filter, a *engine.Assignment) {
	for _, f := range filters {
		f.Synchronize(a)
	}
}
