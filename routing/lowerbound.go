package routing

import (
	"container/heap"

	log "github.com/golang/glog"
)

// ComputeLowerBound bounds the optimal cost from below by relaxing the
// routing problem to a linear sum assignment: a bipartite graph pairs
// every index with its feasible successors at arc cost, and end indices
// pair with their vehicle start at cost zero to square the sides. The
// minimum matching ignores that successors must chain into closed
// routes, hence the bound. Models with disjunctions or per-vehicle
// costs are not supported and return 0.
func (m *Model) ComputeLowerBound() int64 {
	if !m.closed {
		log.Warning("Non-closed model not supported.")
		return 0
	}
	if !m.homogeneous {
		log.Warning("Non-homogeneous vehicle costs not supported")
		return 0
	}
	if len(m.disjunctions) > 0 {
		log.Warning("Node disjunction constraints or optional nodes not supported.")
		return 0
	}
	n := m.size + m.vehicles
	lsap := newLinearSumAssignment(n)
	for tail := int64(0); tail < int64(m.size); tail++ {
		from := tail
		m.nexts[tail].IterateValues(func(head int64) bool {
			// Without disjunctions a node cannot point to itself; the
			// value only lingers because propagation has not run yet.
			if head != from {
				lsap.addArc(int(from), int(head), m.homogeneousCost(from, head))
			}
			return true
		})
	}
	// End indices have no successor. Pair each with its own start at no
	// cost, so a perfect matching can exist.
	for tail := m.size; tail < n; tail++ {
		lsap.addArc(tail, int(m.starts[tail-m.size]), 0)
	}
	cost, ok := lsap.compute()
	if !ok {
		return 0
	}
	return cost
}

type lsapArc struct {
	head int
	cost int64
}

// linearSumAssignment is a minimum-cost perfect bipartite matching
// solver using successive shortest augmenting paths over reduced costs.
// Potentials keep every reduced cost non-negative, so each augmentation
// is a plain Dijkstra run with a lazy-decrease-key heap.
type linearSumAssignment struct {
	n      int
	arcs   [][]lsapArc
	matchL []int
	matchR []int
	potL   []int64
	potR   []int64
}

func newLinearSumAssignment(n int) *linearSumAssignment {
	a := &linearSumAssignment{
		n:      n,
		arcs:   make([][]lsapArc, n),
		matchL: make([]int, n),
		matchR: make([]int, n),
		potL:   make([]int64, n),
		potR:   make([]int64, n),
	}
	for i := 0; i < n; i++ {
		a.matchL[i] = -1
		a.matchR[i] = -1
	}
	return a
}

func (a *linearSumAssignment) addArc(tail, head int, cost int64) {
	a.arcs[tail] = append(a.arcs[tail], lsapArc{head: head, cost: cost})
}

// compute returns the cost of a minimum perfect matching, or false when
// none exists.
func (a *linearSumAssignment) compute() (int64, bool) {
	// Seed the left potentials with each node's cheapest arc, keeping
	// the first reduced costs non-negative even for negative arc costs.
	for l := 0; l < a.n; l++ {
		if len(a.arcs[l]) == 0 {
			return 0, false
		}
		minCost := a.arcs[l][0].cost
		for _, arc := range a.arcs[l][1:] {
			minCost = min(minCost, arc.cost)
		}
		a.potL[l] = minCost
	}
	for s := 0; s < a.n; s++ {
		if !a.augment(s) {
			return 0, false
		}
	}
	// Matched arcs have zero reduced cost, so the matching cost is the
	// sum of all potentials.
	var total int64
	for i := 0; i < a.n; i++ {
		total += a.potL[i] + a.potR[i]
	}
	return total, true
}

// augment grows the matching by one pair via the cheapest alternating
// path from the free left node s, then rebalances the potentials of
// every node the search finalized.
func (a *linearSumAssignment) augment(s int) bool {
	dist := make([]int64, a.n)
	parent := make([]int, a.n)
	done := make([]bool, a.n)
	for i := 0; i < a.n; i++ {
		dist[i] = costInfinity
		parent[i] = -1
	}
	var pq lsapHeap
	relax := func(left int, base int64) {
		for _, arc := range a.arcs[left] {
			if done[arc.head] {
				continue
			}
			d := base + arc.cost - a.potL[left] - a.potR[arc.head]
			if d < dist[arc.head] {
				dist[arc.head] = d
				parent[arc.head] = left
				heap.Push(&pq, lsapItem{head: arc.head, dist: d})
			}
		}
	}
	relax(s, 0)

	sink := -1
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(lsapItem)
		r := item.head
		if done[r] || item.dist > dist[r] {
			continue
		}
		done[r] = true
		if a.matchR[r] < 0 {
			sink = r
			break
		}
		relax(a.matchR[r], dist[r])
	}
	if sink < 0 {
		return false
	}

	delta := dist[sink]
	a.potL[s] += delta
	for r := 0; r < a.n; r++ {
		if !done[r] || r == sink {
			continue
		}
		// The left node matched to r entered the search tree at dist[r].
		a.potR[r] += dist[r] - delta
		a.potL[a.matchR[r]] += delta - dist[r]
	}

	for r := sink; r >= 0; {
		l := parent[r]
		prev := a.matchL[l]
		a.matchL[l] = r
		a.matchR[r] = l
		r = prev
	}
	return true
}

type lsapItem struct {
	head int
	dist int64
}

// lsapHeap is a min-heap over tentative distances. Stale entries are
// skipped on pop instead of being decreased in place.
type lsapHeap []lsapItem

func (h lsapHeap) Len() int            { return len(h) }
func (h lsapHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h lsapHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *lsapHeap) Push(x interface{}) { *h = append(*h, x.(lsapItem)) }
func (h *lsapHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
