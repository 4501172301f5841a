// Package engine is the constraint substrate under lvroute: reversible
// bounded integer variables, a small set of routing-oriented constraints,
// depth-first search over decision builders, and assignment containers.
//
// The design center is the undo trail. Every speculative mutation of a
// variable domain pushes a (slot, old value) record; choice points are
// trail marks; failing a subtree pops records back to the mark. There is
// no other mutable search state, so backtracking is one loop over the
// trail tail.
//
// What the package is NOT: a general CP solver. Propagators are the
// minimum a successor-encoded routing model needs (all-different,
// no-cycle, path-cumul, element in light and full variants, linear sum,
// reified (in)equality, boolean gates). Each propagator is stateless and
// recomputes from current domains, which keeps the trail the single
// source of reversibility.
//
// Layering contract: engine knows nothing about vehicles, nodes or
// dimensions. Higher layers (localsearch, routing) compose everything
// from this surface:
//
//	Solver:          variable arena, constraint posting, propagation queue
//	IntVar:          bounded domain with removed-value holes
//	Assignment:      value snapshots, save/load, restore-as-search
//	DecisionBuilder: search tree description, one Decision at a time
//	Solve:           DFS driver with limits and a best-value collector
//
// Failure convention: domain wipeout returns ErrFailed, which search
// treats as a normal dead end. Caller misuse returns errors wrapping
// ErrContract. Infeasibility is therefore never a panic and never fatal.
package engine
