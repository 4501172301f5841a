package routing

import "time"

// SearchOptions is the immutable configuration of a model's search. The
// model copies it at construction, so mutating the caller's value after
// NewModel has no effect.
//
// The zero value is NOT a useful configuration (it would disable the TSP
// neighborhoods twice over and run with a zero cache bound); start from
// DefaultSearchOptions and override fields as needed:
//
//	opts := routing.DefaultSearchOptions()
//	opts.FirstSolution = routing.PathCheapestArc
//	opts.Metaheuristic = routing.GuidedLocalSearch
//	opts.TimeLimit = 3 * time.Second
//	model, err := routing.NewModel(nodes, vehicles, opts)
type SearchOptions struct {
	// FirstSolution picks the construction heuristic used when Solve
	// starts from scratch.
	FirstSolution Strategy

	// Metaheuristic picks the local-search acceptance policy. Anything
	// but GreedyDescent needs a TimeLimit to terminate.
	Metaheuristic Metaheuristic

	// TimeLimit bounds the whole solve. Zero means no limit.
	TimeLimit time.Duration

	// LNSTimeLimit bounds each large-neighborhood completion sub-solve.
	LNSTimeLimit time.Duration

	// SolutionLimit stops the search after this many improving
	// solutions. Zero means no limit.
	SolutionLimit int64

	// OptimizationStep is the minimum improvement (in cost units) a
	// neighbor must bring over the current solution.
	OptimizationStep int64

	// Seed fixes the simulated-annealing random source. Zero seeds it
	// from the clock.
	Seed int64

	// Neighborhood toggles. The zero value enables an operator, so the
	// field names are negative; NoTSP and NoTSPLNS default to true
	// because the exhaustive TSP neighborhoods rarely pay off.
	NoLNS        bool
	NoRelocate   bool
	NoExchange   bool
	NoCross      bool
	NoTwoOpt     bool
	NoOrOpt      bool
	NoMakeActive bool
	NoLKH        bool
	NoTSP        bool
	NoTSPLNS     bool

	// UseExtendedSwapActive replaces the plain swap-active neighborhood
	// with the variant that also tries all insertion positions.
	UseExtendedSwapActive bool

	// GLSLambda weights the guided-local-search penalty term relative
	// to the plain objective.
	GLSLambda float64

	// SavingsShape scales the in-between arc cost in the Clarke-Wright
	// saving formula; 1 gives the classical parallel savings.
	SavingsShape float64

	// SweepSectors splits the plane into that many sectors before the
	// sweep builder orders nodes by angle inside each.
	SweepSectors int

	// Filter toggles. Filters only prune local-search candidates, never
	// change feasibility, so disabling them trades speed for nothing
	// but diagnosis.
	UseObjectiveFilter      bool
	UsePathCumulFilter      bool
	UsePickupDeliveryFilter bool
	UseDisjunctionFilter    bool

	// LightPropagation swaps full element propagation for the cheap
	// bound-triggered variant on cost and dimension couplings.
	LightPropagation bool

	// CacheCostEvaluators memoizes evaluator calls in a dense node by
	// node table, for models with at most MaxCacheSize nodes.
	CacheCostEvaluators bool
	MaxCacheSize        int64

	// HomogeneousCosts collapses per-vehicle costs into one class when
	// all vehicles share the same evaluator, dropping the vehicle
	// variables from cost propagation. SetVehicleCost clears it.
	HomogeneousCosts bool

	// CheckCompactAssignment re-solves the compacted assignment to
	// verify it is still feasible before returning it.
	CheckCompactAssignment bool

	// Trace logs first-solution and local-search progress.
	Trace bool
}

// DefaultSearchOptions returns the configuration the solver is tuned
// for. All neighborhoods except the TSP ones on, all filters on, greedy
// descent, full propagation, no limits.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		FirstSolution:           DefaultStrategy,
		Metaheuristic:           GreedyDescent,
		LNSTimeLimit:            100 * time.Millisecond,
		OptimizationStep:        1,
		NoTSP:                   true,
		NoTSPLNS:                true,
		GLSLambda:               0.1,
		SavingsShape:            1.0,
		SweepSectors:            1,
		UseObjectiveFilter:      true,
		UsePathCumulFilter:      true,
		UsePickupDeliveryFilter: true,
		UseDisjunctionFilter:    true,
		MaxCacheSize:            1000,
		HomogeneousCosts:        true,
		CheckCompactAssignment:  true,
	}
}
