package localsearch

import (
	"math"
	"math/rand"
	"time"

	"github.com/katalvlaran/lvroute/engine"
)

// Metaheuristic steers acceptance of candidate solutions during local
// search. Synchronize installs a new incumbent, Accept judges one
// feasible candidate, OnLocalOptimum is consulted when a full sweep of
// the neighborhood produced nothing acceptable and reports whether to
// sweep again. Bound returns the highest objective value still worth
// completing while a candidate is evaluated; costInfinity disables the
// cap.
type Metaheuristic interface {
	Synchronize(incumbent *engine.Assignment, cost int64)
	Accept(delta *Delta, candidate *engine.Assignment, cost int64) bool
	OnLocalOptimum() bool
	Bound() int64
}

// descent accepts only candidates that beat the incumbent by at least
// step. The first local optimum ends the search.
type descent struct {
	step    int64
	current int64
}

// NewDescent returns the plain improvement strategy. step below one is
// treated as one.
func NewDescent(step int64) Metaheuristic {
	if step <= 0 {
		step = 1
	}
	return &descent{step: step, current: costInfinity}
}

func (d *descent) Synchronize(_ *engine.Assignment, cost int64) { d.current = cost }

func (d *descent) Accept(_ *Delta, _ *engine.Assignment, cost int64) bool {
	return cost <= d.Bound()
}

func (d *descent) OnLocalOptimum() bool { return false }

func (d *descent) Bound() int64 {
	if d.current == costInfinity {
		return costInfinity
	}
	return d.current - d.step
}

const (
	initialTemperature = 100.0
	coolingFactor      = 0.995
	frozenTemperature  = 0.01
)

// simulatedAnnealing accepts degrading candidates with probability
// exp(-diff/temperature), cooling geometrically with every judged
// candidate. Once frozen it behaves like descent.
type simulatedAnnealing struct {
	step        int64
	current     int64
	temperature float64
	rng         *rand.Rand
}

// NewSimulatedAnnealing returns the annealing strategy. A zero seed is
// replaced with the current time.
func NewSimulatedAnnealing(step, seed int64) Metaheuristic {
	if step <= 0 {
		step = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &simulatedAnnealing{
		step:        step,
		current:     costInfinity,
		temperature: initialTemperature,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

func (s *simulatedAnnealing) Synchronize(_ *engine.Assignment, cost int64) { s.current = cost }

func (s *simulatedAnnealing) Accept(_ *Delta, _ *engine.Assignment, cost int64) bool {
	s.temperature *= coolingFactor
	if s.current == costInfinity || cost <= s.current-s.step {
		return true
	}
	diff := float64(cost - s.current)
	return s.rng.Float64() < math.Exp(-diff/(s.temperature+1e-9))
}

func (s *simulatedAnnealing) OnLocalOptimum() bool { return s.temperature > frozenTemperature }

// Bound leaves the objective uncapped; degrading candidates must stay
// visible for the acceptance test.
func (s *simulatedAnnealing) Bound() int64 { return costInfinity }

type tabuEntry struct {
	v     *engine.IntVar
	value int64
}

// tabuSearch keeps two recency lists over the tracked variables: keep
// holds assignments from recent incumbents that moves should preserve,
// forbid holds assignments recently moved away from that moves should
// not restore. A candidate is acceptable when it respects at least
// factor of the live entries, or unconditionally when it improves on
// the best cost seen.
type tabuSearch struct {
	vars       []*engine.IntVar
	keepSize   int
	forbidSize int
	factor     float64
	step       int64

	current int64
	best    int64
	values  map[*engine.IntVar]int64
	keep    []tabuEntry
	forbid  []tabuEntry
}

// NewTabuSearch returns the tabu strategy tracking vars. keepSize and
// forbidSize bound the two recency lists, factor in (0, 1] is the
// fraction of entries a candidate must respect.
func NewTabuSearch(step int64, vars []*engine.IntVar, keepSize, forbidSize int, factor float64) Metaheuristic {
	if step <= 0 {
		step = 1
	}
	return &tabuSearch{
		vars:       vars,
		keepSize:   keepSize,
		forbidSize: forbidSize,
		factor:     factor,
		step:       step,
		current:    costInfinity,
		best:       costInfinity,
		values:     make(map[*engine.IntVar]int64, len(vars)),
	}
}

func (t *tabuSearch) Synchronize(a *engine.Assignment, cost int64) {
	for _, v := range t.vars {
		if !a.HasValue(v) {
			continue
		}
		value := a.Value(v)
		old, seen := t.values[v]
		if seen && old != value {
			t.keep = push(t.keep, tabuEntry{v: v, value: value}, t.keepSize)
			t.forbid = push(t.forbid, tabuEntry{v: v, value: old}, t.forbidSize)
		}
		t.values[v] = value
	}
	t.current = cost
	if cost < t.best {
		t.best = cost
	}
}

func push(list []tabuEntry, e tabuEntry, size int) []tabuEntry {
	if size <= 0 {
		return list
	}
	list = append(list, e)
	if len(list) > size {
		list = list[len(list)-size:]
	}
	return list
}

func (t *tabuSearch) Accept(delta *Delta, _ *engine.Assignment, cost int64) bool {
	if cost <= t.best-t.step {
		// aspiration: an all-time improvement overrides the lists
		return true
	}
	total := len(t.keep) + len(t.forbid)
	if total == 0 {
		return cost <= t.current-t.step
	}
	violated := 0
	for _, e := range t.keep {
		if value, ok := delta.Value(e.v); ok && value != e.value {
			violated++
		}
	}
	for _, e := range t.forbid {
		if value, ok := delta.Value(e.v); ok && value == e.value {
			violated++
		}
	}
	return float64(total-violated) >= t.factor*float64(total)
}

// OnLocalOptimum ages the lists so a stuck sweep regains moves.
func (t *tabuSearch) OnLocalOptimum() bool {
	if len(t.keep) == 0 && len(t.forbid) == 0 {
		return false
	}
	t.keep = t.keep[(len(t.keep)+1)/2:]
	t.forbid = t.forbid[(len(t.forbid)+1)/2:]
	return true
}

func (t *tabuSearch) Bound() int64 { return costInfinity }

type arcFeature struct {
	from, to int64
}

// guidedLocalSearch penalizes arcs of local optima and judges
// candidates on the augmented cost: true cost plus
// lambda * scale * sum of penalties of the arcs the candidate uses.
// scale is fixed at the first local optimum to the mean arc cost of
// the incumbent, so penalties are commensurate with the objective.
type guidedLocalSearch struct {
	arc    ArcCost
	nexts  []*engine.IntVar
	lambda float64
	step   int64

	incumbent *engine.Assignment
	current   int64
	scale     int64
	penalties map[arcFeature]int64
}

// NewGuidedLocalSearch returns the guided strategy over the successor
// variables nexts, costed by arc.
func NewGuidedLocalSearch(step int64, nexts []*engine.IntVar, arc ArcCost, lambda float64) Metaheuristic {
	if step <= 0 {
		step = 1
	}
	return &guidedLocalSearch{
		arc:       arc,
		nexts:     nexts,
		lambda:    lambda,
		step:      step,
		current:   costInfinity,
		penalties: make(map[arcFeature]int64),
	}
}

func (g *guidedLocalSearch) Synchronize(a *engine.Assignment, cost int64) {
	g.incumbent = a
	g.current = cost
}

func (g *guidedLocalSearch) Accept(_ *Delta, candidate *engine.Assignment, cost int64) bool {
	return satAdd(cost, g.penaltyCost(candidate)) <= g.Bound()
}

func (g *guidedLocalSearch) Bound() int64 {
	if g.current == costInfinity {
		return costInfinity
	}
	return satAdd(g.current, g.penaltyCost(g.incumbent)) - g.step
}

// OnLocalOptimum bumps the penalty of every maximal-utility arc in the
// incumbent, where utility is arc cost divided by one plus its current
// penalty, then asks for another sweep.
func (g *guidedLocalSearch) OnLocalOptimum() bool {
	features := g.features(g.incumbent)
	if len(features) == 0 {
		return false
	}
	if g.scale == 0 {
		g.scale = g.current / int64(len(features))
		if g.scale <= 0 {
			g.scale = 1
		}
	}
	bestUtility := -1.0
	for _, f := range features {
		if u := float64(g.arc(f.from, f.to)) / float64(1+g.penalties[f]); u > bestUtility {
			bestUtility = u
		}
	}
	for _, f := range features {
		if float64(g.arc(f.from, f.to))/float64(1+g.penalties[f]) == bestUtility {
			g.penalties[f]++
		}
	}
	return true
}

// penaltyCost prices the penalized arcs an assignment uses.
func (g *guidedLocalSearch) penaltyCost(a *engine.Assignment) int64 {
	if a == nil || len(g.penalties) == 0 || g.scale == 0 {
		return 0
	}
	unit := int64(g.lambda * float64(g.scale))
	if unit <= 0 {
		unit = 1
	}
	var total int64
	for _, f := range g.features(a) {
		total = satAdd(total, unit*g.penalties[f])
	}
	return total
}

// features lists the arcs an assignment performs, skipping inactive
// self-loops.
func (g *guidedLocalSearch) features(a *engine.Assignment) []arcFeature {
	if a == nil {
		return nil
	}
	features := make([]arcFeature, 0, len(g.nexts))
	for i, v := range g.nexts {
		if !a.HasValue(v) {
			continue
		}
		next := a.Value(v)
		if next == int64(i) {
			continue
		}
		features = append(features, arcFeature{from: int64(i), to: next})
	}
	return features
}
