package localsearch

import "github.com/katalvlaran/lvroute/engine"

// pathLNS releases one whole path per neighbor: every successor and
// companion variable on the path is freed and a nested solve rebuilds
// the route from scratch. Filters skip releasing deltas by contract, so
// the candidate stands or falls on propagation alone.
type pathLNS struct {
	nexts       []*engine.IntVar
	vehicleVars []*engine.IntVar
	starts      []int64
	committed   []int64
	path        int
}

// NewPathLNS returns the path-release neighborhood.
func NewPathLNS(nexts, vehicleVars []*engine.IntVar, starts []int64) Operator {
	return &pathLNS{
		nexts:       nexts,
		vehicleVars: vehicleVars,
		starts:      starts,
		committed:   make([]int64, len(nexts)),
	}
}

func (o *pathLNS) Synchronize(a *engine.Assignment) {
	captureNexts(a, o.nexts, o.committed)
	o.path = 0
}

func (o *pathLNS) MakeNextNeighbor(delta *Delta) bool {
	if o.path >= len(o.starts) {
		return false
	}
	delta.Reset()
	freePath(delta, o.nexts, o.vehicleVars, o.committed, o.starts[o.path])
	o.path++
	return true
}

// unactiveLNS releases every inactive node together with one path, so
// the nested solve may weave dropped nodes back into that route.
type unactiveLNS struct {
	nexts       []*engine.IntVar
	vehicleVars []*engine.IntVar
	activeVars  []*engine.IntVar
	starts      []int64
	committed   []int64
	path        int
}

// NewUnactiveLNS returns the inactive-plus-path release neighborhood.
func NewUnactiveLNS(nexts, vehicleVars, activeVars []*engine.IntVar, starts []int64) Operator {
	return &unactiveLNS{
		nexts:       nexts,
		vehicleVars: vehicleVars,
		activeVars:  activeVars,
		starts:      starts,
		committed:   make([]int64, len(nexts)),
	}
}

func (o *unactiveLNS) Synchronize(a *engine.Assignment) {
	captureNexts(a, o.nexts, o.committed)
	o.path = 0
}

func (o *unactiveLNS) MakeNextNeighbor(delta *Delta) bool {
	if o.path >= len(o.starts) {
		return false
	}
	delta.Reset()
	freePath(delta, o.nexts, o.vehicleVars, o.committed, o.starts[o.path])
	for i, next := range o.committed {
		if next != int64(i) {
			continue
		}
		delta.Free(o.nexts[i])
		if o.vehicleVars != nil {
			delta.Free(o.vehicleVars[i])
		}
		if i < len(o.activeVars) {
			delta.Free(o.activeVars[i])
		}
	}
	o.path++
	return true
}

func captureNexts(a *engine.Assignment, nexts []*engine.IntVar, into []int64) {
	for i, v := range nexts {
		if a.HasValue(v) {
			into[i] = a.Value(v)
		} else {
			into[i] = int64(i)
		}
	}
}

func freePath(delta *Delta, nexts, vehicleVars []*engine.IntVar, committed []int64, start int64) {
	node := start
	for steps := 0; node < int64(len(nexts)) && steps <= len(nexts); steps++ {
		delta.Free(nexts[node])
		if vehicleVars != nil && node < int64(len(vehicleVars)) {
			delta.Free(vehicleVars[node])
		}
		node = committed[node]
	}
}
