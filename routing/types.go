package routing

import (
	"fmt"

	"github.com/katalvlaran/lvroute/engine"
)

// Node identifies a physical location (customer or depot), independent of
// how many vehicle-specific indices reference it. Nodes are dense ints in
// [0, nodes); the model maps them to successor indices internally.
type Node int

// Unassigned marks the absence of a node or index, mirroring the -1 value
// carried by vehicle variables while a visit is not on any route.
const Unassigned = -1

// Status reports the outcome of the latest Solve, RestoreAssignment or
// ReadAssignment call on a model.
type Status int

const (
	// NotSolved means no solve has been attempted yet.
	NotSolved Status = iota

	// Success means a feasible assignment was found and returned.
	Success

	// Fail means the search completed without finding any solution.
	Fail

	// FailTimeout means the search hit its time limit before finding
	// any solution; infeasibility was not proven.
	FailTimeout
)

var statusNames = [...]string{
	NotSolved:   "NotSolved",
	Success:     "Success",
	Fail:        "Fail",
	FailTimeout: "FailTimeout",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Strategy selects the first-solution heuristic used when Solve is not
// given a starting assignment.
type Strategy int

const (
	// DefaultStrategy lets the plain decision phase assign each next
	// variable its smallest feasible value.
	DefaultStrategy Strategy = iota

	// GlobalCheapestArc repeatedly commits the cheapest arc over all
	// unbound next variables.
	GlobalCheapestArc

	// LocalCheapestArc binds next variables in index order, each to its
	// cheapest feasible successor.
	LocalCheapestArc

	// PathCheapestArc extends open paths by their cheapest outgoing arc,
	// the classic nearest-neighbor route builder.
	PathCheapestArc

	// EvaluatorStrategy behaves like PathCheapestArc but ranks arcs with
	// the evaluator installed via SetFirstSolutionEvaluator.
	EvaluatorStrategy

	// AllUnperformed starts from the empty solution: every optional node
	// inactive. Only feasible when all non-depot nodes are optional.
	AllUnperformed

	// BestInsertion builds the empty solution and then inserts optional
	// nodes one by one at their cheapest position, driven by local
	// search over activity moves.
	BestInsertion

	// Savings merges singleton routes in decreasing order of the
	// classical Clarke-Wright saving value.
	Savings

	// Sweep orders nodes by polar angle around the depot and chains
	// them sector by sector.
	Sweep
)

var strategyNames = [...]string{
	DefaultStrategy:   "DefaultStrategy",
	GlobalCheapestArc: "GlobalCheapestArc",
	LocalCheapestArc:  "LocalCheapestArc",
	PathCheapestArc:   "PathCheapestArc",
	EvaluatorStrategy: "EvaluatorStrategy",
	AllUnperformed:    "AllUnperformed",
	BestInsertion:     "BestInsertion",
	Savings:           "Savings",
	Sweep:             "Sweep",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// ParseStrategy maps a strategy name (as produced by String) back to its
// value. Unknown names return an error wrapping engine.ErrContract.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return DefaultStrategy, fmt.Errorf("%w: unknown first-solution strategy %q", engine.ErrContract, name)
}

// Metaheuristic selects the acceptance policy steering local search after
// the first solution.
type Metaheuristic int

const (
	// GreedyDescent accepts only strict improvements and stops at the
	// first local optimum.
	GreedyDescent Metaheuristic = iota

	// GuidedLocalSearch penalizes arcs of local optima to diversify;
	// requires a time limit to terminate.
	GuidedLocalSearch

	// SimulatedAnnealing accepts worsening moves with a decreasing
	// probability; requires a time limit to terminate.
	SimulatedAnnealing

	// TabuSearch forbids recently changed variables from changing back;
	// requires a time limit to terminate.
	TabuSearch
)

var metaheuristicNames = [...]string{
	GreedyDescent:      "GreedyDescent",
	GuidedLocalSearch:  "GuidedLocalSearch",
	SimulatedAnnealing: "SimulatedAnnealing",
	TabuSearch:         "TabuSearch",
}

func (m Metaheuristic) String() string {
	if m < 0 || int(m) >= len(metaheuristicNames) {
		return fmt.Sprintf("Metaheuristic(%d)", int(m))
	}
	return metaheuristicNames[m]
}

// ParseMetaheuristic maps a metaheuristic name (as produced by String)
// back to its value. Unknown names return an error wrapping
// engine.ErrContract.
func ParseMetaheuristic(name string) (Metaheuristic, error) {
	for i, n := range metaheuristicNames {
		if n == name {
			return Metaheuristic(i), nil
		}
	}
	return GreedyDescent, fmt.Errorf("%w: unknown metaheuristic %q", engine.ErrContract, name)
}
