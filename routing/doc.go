// Package routing builds vehicle routing models on top of the engine and
// localsearch packages and solves them end to end.
//
// A Model owns the successor encoding. Every visit occurrence is an index
// in [0, Size()+vehicles): one index per node occurrence plus one end
// index per vehicle. Three parallel variable arrays describe a solution:
//
//	next[i]:    the index served right after i on its path
//	vehicle[i]: which vehicle serves i, -1 while unassigned
//	active[i]:  whether i is served at all; next[i] == i when it is not
//
// On top of that core the model layers the usual routing vocabulary:
// per-vehicle arc cost evaluators collapsed into cost classes, named
// dimensions (cumul/transit/slack triples with capacities), disjunctions
// of optional nodes with drop penalties, pickup and delivery pairs, and
// route locks via a preassignment.
//
// Solving is two-phase. A first-solution strategy (cheapest-arc phases,
// savings, sweep, best insertion, or all-unperformed) produces a feasible
// assignment; localsearch.Improve then walks the configured neighborhood
// stack under the chosen metaheuristic until the limits fire. All knobs
// live in SearchOptions, an immutable copy taken at model construction.
//
// The package distinguishes three failure modes. Caller misuse (bad node,
// depot not set, re-setting a vehicle cost) returns errors wrapping
// engine.ErrContract. Infeasibility is a nil assignment from Solve with
// Status reporting Fail or FailTimeout. Unsupported requests (lower
// bounds with disjunctions, compacting heterogeneous fleets) log a
// warning and return a trivial result.
package routing
