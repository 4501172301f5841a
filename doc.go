// Package lvroute is a constraint-propagation-backed Vehicle Routing
// optimizer: build a routing model over nodes and vehicles, attach
// dimensions (capacity, time), disjunctions and pickup/delivery pairs,
// then let construction heuristics and incremental local search find and
// improve routes.
//
// 🚚 What is lvroute?
//
//	A deterministic, single-threaded solver library that brings together:
//		• Successor-function path encoding over a unified index space
//		• Dimensions: cumulative resources with slack and per-vehicle capacity
//		• Disjunctions: optional/alternative node sets with penalties
//		• Construction: savings, sweep, cheapest-arc, best-insertion
//		• Local search: 2-opt, or-opt, relocate, exchange, cross, LNS and
//		  pair-aware moves, pre-screened by incremental filters
//		• Metaheuristics: greedy descent, guided local search,
//		  simulated annealing, tabu search
//
// ✨ Why choose lvroute?
//
//   - Explicit everything – immutable options, seeded randomness, no globals
//   - Reversible by construction – one undo trail, no hidden solver state
//   - Pure Go – no cgo, no solver binaries to ship
//   - Narrow layers – each package consumes only the one below it
//
// Under the hood, everything is organized under three subpackages:
//
//	engine/      reversible int variables, constraints, DFS search,
//	             assignments, limits (the substrate)
//	localsearch/ delta protocol, path operators, neighborhoods, filters,
//	             acceptance policies
//	routing/     the routing model, dimensions, disjunctions, heuristics,
//	             routing filters and the Solve driver
//
// Quick ASCII example:
//
//	    start ──► A ──► B ──► end
//	    start ──► C ──► D ──► end
//
//	two vehicles serving four customers; every arrow is one next[] value.
//
// Dive into routing/doc.go for the model walkthrough and runnable examples.
//
//	go get github.com/katalvlaran/lvroute
package lvroute
