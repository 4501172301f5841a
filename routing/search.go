package routing

import (
	"fmt"
	"time"

	log "github.com/golang/glog"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/localsearch"
)

// Exact reordering neighborhoods blow up exponentially in the route
// length, so they only touch routes and windows this short.
const (
	tspOptMaxNodes = 10
	tspWindowSize  = 10
)

// solutionFinalizer binds every remaining successor to its smallest
// value. It completes partially built solutions, both after the first
// solution phase and inside candidate evaluation.
func (m *Model) solutionFinalizer() engine.DecisionBuilder {
	return engine.NewPhase(m.nexts, engine.ChooseFirstUnbound, nil)
}

func (m *Model) firstSolutionEval() engine.ValueEvaluator {
	return func(varIndex int, value int64) int64 {
		return m.FirstSolutionCost(int64(varIndex), value)
	}
}

// homogeneousArc prices arcs as driven by the first vehicle. The
// neighborhoods and metaheuristics that need a plain arc callback use
// it even on heterogeneous fleets.
func (m *Model) homogeneousArc() localsearch.ArcCost {
	return func(from, to int64) int64 { return m.homogeneousCost(from, to) }
}

// firstSolutionBuilder returns the construction builder of the
// configured strategy; finalizer doubles as the default phase.
func (m *Model) firstSolutionBuilder(finalizer engine.DecisionBuilder) (engine.DecisionBuilder, error) {
	strategy := m.opts.FirstSolution
	if log.V(1) {
		log.Infof("Using first solution strategy: %v", strategy)
	}
	switch strategy {
	case DefaultStrategy:
		return finalizer, nil
	case GlobalCheapestArc:
		return engine.NewPhase(m.nexts, engine.ChooseGlobalBest, m.firstSolutionEval()), nil
	case LocalCheapestArc:
		return engine.NewPhase(m.nexts, engine.ChooseFirstUnbound, m.firstSolutionEval()), nil
	case PathCheapestArc:
		phase := engine.NewPhase(m.nexts, engine.ChoosePath, m.firstSolutionEval())
		if m.vehicles == 1 {
			return engine.NewTry(m.fastOnePathBuilder(), phase), nil
		}
		return phase, nil
	case EvaluatorStrategy:
		if m.firstSolutionEvaluator == nil {
			return nil, fmt.Errorf("%w: EvaluatorStrategy needs SetFirstSolutionEvaluator", engine.ErrContract)
		}
		eval := m.firstSolutionEvaluator
		return engine.NewPhase(m.nexts, engine.ChoosePath, func(varIndex int, value int64) int64 {
			return eval(int64(varIndex), value)
		}), nil
	case AllUnperformed:
		return m.allUnperformedBuilder(), nil
	case BestInsertion:
		return m.bestInsertionBuilder(finalizer), nil
	case Savings:
		return engine.NewTry(m.savingsBuilder(false), m.savingsBuilder(true)), nil
	case Sweep:
		if m.sweep == nil {
			return nil, fmt.Errorf("%w: the Sweep strategy needs SetSweepArranger", engine.ErrContract)
		}
		return engine.NewTry(m.sweepBuilder(false), m.sweepBuilder(true)), nil
	default:
		log.Warningf("Unknown first solution strategy %v, using the default", strategy)
		return finalizer, nil
	}
}

// insertionOperator activates inactive orders, pairwise when pickup
// and delivery pairs exist.
func (m *Model) insertionOperator() localsearch.Operator {
	vehicleVars := m.vehicleVars
	if m.homogeneous {
		vehicleVars = nil
	}
	if len(m.pairs) > 0 {
		return localsearch.NewPairActive(m.nexts, vehicleVars, m.starts, m.pairs)
	}
	return localsearch.NewMakeActive(m.nexts, vehicleVars, m.starts)
}

// neighborhoodOperator concatenates every enabled neighborhood. The
// order is fixed: cheap path moves come before activity moves, the
// expensive arc-callback and releasing neighborhoods close the list.
func (m *Model) neighborhoodOperator() localsearch.Operator {
	vehicleVars := m.vehicleVars
	if m.homogeneous {
		vehicleVars = nil
	}
	arc := m.homogeneousArc()
	// Tabu search and annealing revisit worsening solutions, which the
	// improvement-only arc-callback neighborhoods would fight.
	noCallbacks := m.opts.Metaheuristic == TabuSearch || m.opts.Metaheuristic == SimulatedAnnealing

	operators := append([]localsearch.Operator{}, m.extraOps...)
	if len(m.pairs) > 0 {
		operators = append(operators, localsearch.NewPairRelocate(m.nexts, vehicleVars, m.starts, m.pairs))
	}
	if m.vehicles > 1 {
		if !m.opts.NoRelocate {
			operators = append(operators, localsearch.NewRelocate(m.nexts, vehicleVars, m.starts, 1, false))
		}
		if !m.opts.NoExchange {
			operators = append(operators, localsearch.NewExchange(m.nexts, vehicleVars, m.starts))
		}
		if !m.opts.NoCross {
			operators = append(operators, localsearch.NewCross(m.nexts, vehicleVars, m.starts))
		}
	}
	if !m.opts.NoLKH && !noCallbacks {
		operators = append(operators, localsearch.NewLinKernighan(m.nexts, vehicleVars, m.starts, arc))
	}
	if !m.opts.NoTwoOpt {
		operators = append(operators, localsearch.NewTwoOpt(m.nexts, vehicleVars, m.starts))
	}
	if !m.opts.NoOrOpt {
		operators = append(operators, localsearch.NewOrOpt(m.nexts, vehicleVars, m.starts))
	}
	if !m.opts.NoMakeActive && len(m.disjunctions) > 0 {
		operators = append(operators, localsearch.NewMakeInactive(m.nexts, vehicleVars, m.starts))
		operators = append(operators, m.insertionOperator())
		if m.opts.UseExtendedSwapActive {
			operators = append(operators, localsearch.NewExtendedSwapActive(m.nexts, vehicleVars, m.starts))
		} else {
			operators = append(operators, localsearch.NewSwapActive(m.nexts, vehicleVars, m.starts))
		}
	}
	if !m.opts.NoTSP && !noCallbacks {
		operators = append(operators, localsearch.NewTSPOpt(m.nexts, vehicleVars, m.starts, arc, tspOptMaxNodes))
	}
	if !m.opts.NoTSPLNS && !noCallbacks {
		operators = append(operators, localsearch.NewTSPWindow(m.nexts, vehicleVars, m.starts, arc, tspWindowSize))
	}
	if !m.opts.NoLNS {
		operators = append(operators, localsearch.NewPathLNS(m.nexts, vehicleVars, m.starts))
		if len(m.disjunctions) > 0 {
			operators = append(operators, localsearch.NewUnactiveLNS(m.nexts, vehicleVars, m.activeVars, m.starts))
		}
	}
	return localsearch.NewConcat(operators...)
}

func (m *Model) newMetaheuristic() localsearch.Metaheuristic {
	step := m.opts.OptimizationStep
	if log.V(1) {
		log.Infof("Using metaheuristic: %v", m.opts.Metaheuristic)
	}
	switch m.opts.Metaheuristic {
	case GuidedLocalSearch:
		return localsearch.NewGuidedLocalSearch(step, m.nexts, m.homogeneousArc(), m.opts.GLSLambda)
	case SimulatedAnnealing:
		return localsearch.NewSimulatedAnnealing(step, m.opts.Seed)
	case TabuSearch:
		return localsearch.NewTabuSearch(step, m.nexts, 10, 10, 0.8)
	default:
		return localsearch.NewDescent(step)
	}
}

// UpdateTimeLimit replaces the wall clock budget used by later Solve
// calls.
func (m *Model) UpdateTimeLimit(limit time.Duration) { m.opts.TimeLimit = limit }

// UpdateLNSTimeLimit replaces the completion budget of releasing moves
// used by later Solve calls.
func (m *Model) UpdateLNSTimeLimit(limit time.Duration) { m.opts.LNSTimeLimit = limit }

// Solve builds a first solution with the configured strategy and
// improves it by local search until a limit strikes. A non-nil initial
// assignment skips construction and is improved instead, after being
// validated by propagation. A nil result with status Fail or
// FailTimeout means no solution; the error is reserved for contract
// violations.
func (m *Model) Solve(initial *engine.Assignment) (*engine.Assignment, error) {
	m.quietClose()
	if m.rootErr != nil {
		m.status = Fail
		return nil, m.rootErr
	}
	start := time.Now()

	finalizer := m.solutionFinalizer()
	meta := m.newMetaheuristic()
	filters := m.localSearchFilters(meta)
	restorePre := engine.NewRestoreAssignment(m.preassignment)

	var incumbent *engine.Assignment
	if initial == nil {
		firstSolution, err := m.firstSolutionBuilder(finalizer)
		if err != nil {
			m.status = Fail
			return nil, err
		}
		db := engine.NewCompose(restorePre, firstSolution, finalizer)
		collector := engine.NewSolutionCollector(m.fullTemplate())
		limit := engine.SearchLimit{TimeLimit: m.opts.TimeLimit, Solutions: 1}
		if found, _ := engine.Solve(m.solver, db, collector, limit); found {
			incumbent = collector.Best()
		}
	} else {
		target := m.fullTemplate()
		for _, v := range initial.Vars() {
			if initial.HasValue(v) {
				target.SetValue(v, initial.Value(v))
			}
		}
		db := engine.NewCompose(restorePre, engine.NewRestoreAssignment(target), finalizer)
		collector := engine.NewSolutionCollector(m.fullTemplate())
		limit := engine.SearchLimit{TimeLimit: m.opts.TimeLimit, Solutions: 1}
		if found, _ := engine.Solve(m.solver, db, collector, limit); found {
			incumbent = collector.Best()
		}
	}
	if incumbent == nil {
		return nil, m.finish(nil, start)
	}

	best := incumbent
	improveLimit := engine.SearchLimit{}
	improve := true
	if m.opts.TimeLimit > 0 {
		remaining := m.opts.TimeLimit - time.Since(start)
		if remaining <= 0 {
			improve = false
		}
		improveLimit.TimeLimit = remaining
	}
	if m.opts.SolutionLimit > 0 {
		// The incumbent counts as the first solution.
		if m.opts.SolutionLimit == 1 {
			improve = false
		}
		improveLimit.Solutions = m.opts.SolutionLimit - 1
	}
	if improve {
		improved, _ := localsearch.Improve(m.solver, incumbent, m.neighborhoodOperator(), finalizer, localsearch.Options{
			Filters:  filters,
			Meta:     meta,
			Limit:    improveLimit,
			LNSLimit: m.opts.LNSTimeLimit,
		})
		if improved != nil {
			best = improved
		}
	}
	return best, m.finish(best, start)
}

// finish records the solve outcome: the best assignment and a status,
// with the failure flavor decided by the wall clock.
func (m *Model) finish(best *engine.Assignment, start time.Time) error {
	if best != nil {
		m.best = best
		m.status = Success
		if m.opts.Trace {
			log.Infof("Routing solve succeeded: cost %d in %v", best.ObjectiveValue(), time.Since(start))
		}
		return nil
	}
	if m.opts.TimeLimit > 0 && time.Since(start) >= m.opts.TimeLimit {
		m.status = FailTimeout
	} else {
		m.status = Fail
	}
	if m.opts.Trace {
		log.Infof("Routing solve failed: status %v after %v", m.status, time.Since(start))
	}
	return nil
}
