package localsearch

import "github.com/katalvlaran/lvroute/engine"

// tspOpt re-optimizes whole routes exactly. Each neighbor reorders the
// customers of one path by Held-Karp dynamic programming between the
// fixed start and end; only routes short enough for the bitmask tables
// are touched, and only strict improvements are emitted.
type tspOpt struct {
	nexts       []*engine.IntVar
	vehicleVars []*engine.IntVar
	starts      []int64
	arc         ArcCost
	maxNodes    int
	committed   []int64
	path        int
}

// NewTSPOpt returns the exact route-reordering neighborhood. Routes
// with more than maxNodes customers are skipped.
func NewTSPOpt(nexts, vehicleVars []*engine.IntVar, starts []int64, arc ArcCost, maxNodes int) Operator {
	return &tspOpt{
		nexts:       nexts,
		vehicleVars: vehicleVars,
		starts:      starts,
		arc:         arc,
		maxNodes:    maxNodes,
		committed:   make([]int64, len(nexts)),
	}
}

func (o *tspOpt) Synchronize(a *engine.Assignment) {
	captureNexts(a, o.nexts, o.committed)
	o.path = 0
}

func (o *tspOpt) MakeNextNeighbor(delta *Delta) bool {
	for o.path < len(o.starts) {
		start := o.starts[o.path]
		o.path++
		middle, end := routeNodes(o.committed, start)
		if len(middle) < 2 || len(middle) > o.maxNodes {
			continue
		}
		order, improved := reorderExact(o.arc, start, middle, end)
		if !improved {
			continue
		}
		delta.Reset()
		writeOrder(delta, o.nexts, start, order, end)
		return true
	}
	return false
}

// tspWindow is the long-route companion of tspOpt: it slides a fixed
// size window along each path and reorders the window exactly between
// its two committed boundary nodes.
type tspWindow struct {
	nexts       []*engine.IntVar
	vehicleVars []*engine.IntVar
	starts      []int64
	arc         ArcCost
	windowSize  int
	committed   []int64
	path        int
	offset      int
}

// NewTSPWindow returns the sliding-window exact reordering
// neighborhood.
func NewTSPWindow(nexts, vehicleVars []*engine.IntVar, starts []int64, arc ArcCost, windowSize int) Operator {
	return &tspWindow{
		nexts:       nexts,
		vehicleVars: vehicleVars,
		starts:      starts,
		arc:         arc,
		windowSize:  windowSize,
		committed:   make([]int64, len(nexts)),
	}
}

func (o *tspWindow) Synchronize(a *engine.Assignment) {
	captureNexts(a, o.nexts, o.committed)
	o.path = 0
	o.offset = 0
}

func (o *tspWindow) MakeNextNeighbor(delta *Delta) bool {
	step := o.windowSize / 2
	if step < 1 {
		step = 1
	}
	for o.path < len(o.starts) {
		middle, end := routeNodes(o.committed, o.starts[o.path])
		if o.offset+2 > len(middle) {
			o.path++
			o.offset = 0
			continue
		}
		hi := o.offset + o.windowSize
		if hi > len(middle) {
			hi = len(middle)
		}
		window := middle[o.offset:hi]
		before := o.starts[o.path]
		if o.offset > 0 {
			before = middle[o.offset-1]
		}
		after := end
		if hi < len(middle) {
			after = middle[hi]
		}
		o.offset += step
		if len(window) < 2 {
			continue
		}
		order, improved := reorderExact(o.arc, before, window, after)
		if !improved {
			continue
		}
		delta.Reset()
		writeOrder(delta, o.nexts, before, order, after)
		return true
	}
	return false
}

// routeNodes walks a committed route, returning the customer nodes in
// visit order and the end sentinel.
func routeNodes(committed []int64, start int64) ([]int64, int64) {
	var middle []int64
	node := committed[start]
	for steps := 0; node < int64(len(committed)) && steps <= len(committed); steps++ {
		middle = append(middle, node)
		node = committed[node]
	}
	return middle, node
}

// writeOrder rewires before -> order... -> after. The chain stays on
// its own path so companion variables keep their values.
func writeOrder(delta *Delta, nexts []*engine.IntVar, before int64, order []int64, after int64) {
	prev := before
	for _, n := range order {
		delta.SetValue(nexts[prev], n)
		prev = n
	}
	delta.SetValue(nexts[prev], after)
}

// reorderExact finds the cheapest visiting order of nodes between the
// fixed endpoints. It reports whether the best order differs from the
// given one with a strictly lower cost.
//
// dp[mask][j] is the cost of leaving before, visiting exactly the nodes
// in mask and stopping at nodes[j]; closing appends the arc to after.
func reorderExact(arc ArcCost, before int64, nodes []int64, after int64) ([]int64, bool) {
	n := len(nodes)
	full := (1 << n) - 1
	dp := make([][]int64, full+1)
	parent := make([][]int, full+1)
	for mask := 0; mask <= full; mask++ {
		dp[mask] = make([]int64, n)
		parent[mask] = make([]int, n)
		for j := 0; j < n; j++ {
			dp[mask][j] = costInfinity
			parent[mask][j] = -1
		}
	}
	for j := 0; j < n; j++ {
		dp[1<<j][j] = arc(before, nodes[j])
	}
	for mask := 1; mask <= full; mask++ {
		for j := 0; j < n; j++ {
			if mask&(1<<j) == 0 || dp[mask][j] == costInfinity {
				continue
			}
			for k := 0; k < n; k++ {
				if mask&(1<<k) != 0 {
					continue
				}
				next := mask | 1<<k
				cand := satAdd(dp[mask][j], arc(nodes[j], nodes[k]))
				if cand < dp[next][k] {
					dp[next][k] = cand
					parent[next][k] = j
				}
			}
		}
	}
	best := costInfinity
	last := -1
	for j := 0; j < n; j++ {
		total := satAdd(dp[full][j], arc(nodes[j], after))
		if total < best {
			best = total
			last = j
		}
	}
	if last < 0 {
		return nil, false
	}
	// compare against the committed order
	current := arc(before, nodes[0])
	for i := 0; i+1 < n; i++ {
		current = satAdd(current, arc(nodes[i], nodes[i+1]))
	}
	current = satAdd(current, arc(nodes[n-1], after))
	if best >= current {
		return nil, false
	}
	order := make([]int64, n)
	mask := full
	j := last
	for i := n - 1; i >= 0; i-- {
		order[i] = nodes[j]
		p := parent[mask][j]
		mask ^= 1 << j
		j = p
	}
	return order, true
}
