package localsearch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvroute/engine"
	"github.com/katalvlaran/lvroute/localsearch"
)

// MakeActive tries the parked node 2 after every position of the path
// 0 -> 1 -> end.
func TestMakeActive_TriesEveryInsertion(t *testing.T) {
	f := newFixture(t, 3, []int64{0})
	a := f.commit(1, 3, 2)

	op := localsearch.NewMakeActive(f.nexts, f.vehicles, f.starts)
	rows := neighbors(op, a, f.nexts)
	require.Equal(t, [][]int64{
		{2, 3, 1}, // 0 -> 2 -> 1
		{1, 2, 3}, // 0 -> 1 -> 2
	}, rows)
}

// MakeInactive drops each customer of 0 -> 1 -> 2 -> end in turn.
func TestMakeInactive_DropsEachNode(t *testing.T) {
	f := newFixture(t, 3, []int64{0})
	a := f.commit(1, 2, 3)

	op := localsearch.NewMakeInactive(f.nexts, f.vehicles, f.starts)
	rows := neighbors(op, a, f.nexts)
	require.Equal(t, [][]int64{
		{2, 1, 3}, // 1 dropped
		{1, 3, 2}, // 2 dropped
	}, rows)
}

// SwapActive trades the served node 1 for the parked node 2 in place.
func TestSwapActive_TradesNodes(t *testing.T) {
	f := newFixture(t, 3, []int64{0})
	a := f.commit(1, 3, 2)

	op := localsearch.NewSwapActive(f.nexts, f.vehicles, f.starts)
	op.Synchronize(a)

	delta := localsearch.NewDelta()
	require.True(t, op.MakeNextNeighbor(delta))
	requireChange(t, delta, f.nexts[0], 2)
	requireChange(t, delta, f.nexts[1], 1)
	requireChange(t, delta, f.nexts[2], 3)
	requireChange(t, delta, f.vehicles[1], -1)
	requireChange(t, delta, f.vehicles[2], 0)
	require.False(t, op.MakeNextNeighbor(delta))
}

// ExtendedSwapActive decouples the dropped position from the inserted
// one: node 3 may re-enter anywhere, not just where a node left.
func TestExtendedSwapActive_DecouplesPositions(t *testing.T) {
	f := newFixture(t, 4, []int64{0})
	a := f.commit(1, 2, 4, 3)

	op := localsearch.NewExtendedSwapActive(f.nexts, f.vehicles, f.starts)
	rows := neighbors(op, a, f.nexts)
	require.Len(t, rows, 4)
	require.Contains(t, rows, []int64{3, 1, 4, 2}) // drop 1, insert 3 after 0
	require.Contains(t, rows, []int64{2, 1, 3, 4}) // drop 1, insert 3 after 2
}

// PairActive inserts the second node first, so the pickup always lands
// before its delivery no matter the insertion positions.
func TestPairActive_KeepsPrecedence(t *testing.T) {
	f := newFixture(t, 4, []int64{0})
	a := f.commit(3, 1, 2, 4)
	pairs := []localsearch.Pair{{First: 1, Second: 2}}

	op := localsearch.NewPairActive(f.nexts, f.vehicles, f.starts, pairs)
	rows := neighbors(op, a, f.nexts)
	require.Equal(t, [][]int64{
		{1, 2, 3, 4}, // both right after the start
		{1, 3, 4, 2}, // 1 after start, 2 after 3
		{3, 2, 4, 1}, // both after 3
	}, rows)
	for _, row := range rows {
		r := route(t, row, 0)
		require.Less(t, indexOf(r, 1), indexOf(r, 2), "delivery before pickup in %v", r)
	}
}

// Pairs with a performed member are skipped; activation is only for
// fully dropped pairs.
func TestPairActive_SkipsPerformedPairs(t *testing.T) {
	f := newFixture(t, 4, []int64{0})
	a := f.commit(1, 3, 2, 4)
	pairs := []localsearch.Pair{{First: 1, Second: 2}}

	op := localsearch.NewPairActive(f.nexts, f.vehicles, f.starts, pairs)
	require.Empty(t, neighbors(op, a, f.nexts))
}

// PairRelocate moves both members of the pair (1, 2) along the route
// 0 -> 1 -> 2 -> 3 -> end; among the candidates is the shift of the
// whole pair behind node 3.
func TestPairRelocate_MovesBothMembers(t *testing.T) {
	f := newFixture(t, 4, []int64{0})
	a := f.commit(1, 2, 3, 4)
	pairs := []localsearch.Pair{{First: 1, Second: 2}}

	op := localsearch.NewPairRelocate(f.nexts, f.vehicles, f.starts, pairs)
	rows := neighbors(op, a, f.nexts)
	require.NotEmpty(t, rows)
	require.Contains(t, rows, []int64{3, 2, 4, 1}) // 0 -> 3 -> 1 -> 2
	for _, row := range rows {
		require.ElementsMatch(t, []int64{0, 1, 2, 3}, route(t, row, 0))
	}
}

// PathLNS releases one whole path per neighbor, successors and
// companions alike.
func TestPathLNS_ReleasesWholePaths(t *testing.T) {
	f := newFixture(t, 3, []int64{0, 2})
	a := f.commit(1, 3, 4)

	op := localsearch.NewPathLNS(f.nexts, f.vehicles, f.starts)
	op.Synchronize(a)

	delta := localsearch.NewDelta()
	require.True(t, op.MakeNextNeighbor(delta))
	require.True(t, delta.HasFreed())
	require.True(t, delta.Freed(f.nexts[0]))
	require.True(t, delta.Freed(f.nexts[1]))
	require.True(t, delta.Freed(f.vehicles[0]))
	require.False(t, delta.Freed(f.nexts[2]))

	require.True(t, op.MakeNextNeighbor(delta))
	require.True(t, delta.Freed(f.nexts[2]))
	require.False(t, delta.Freed(f.nexts[0]))

	require.False(t, op.MakeNextNeighbor(delta))
}

// UnactiveLNS frees the dropped node 2 alongside each path, so a
// nested solve may weave it back in.
func TestUnactiveLNS_ReleasesDroppedNodes(t *testing.T) {
	f := newFixture(t, 3, []int64{0})
	a := f.commit(1, 3, 2)
	active := []*engine.IntVar{
		f.s.NewBoolVar("active/0"),
		f.s.NewBoolVar("active/1"),
		f.s.NewBoolVar("active/2"),
	}

	op := localsearch.NewUnactiveLNS(f.nexts, f.vehicles, active, f.starts)
	op.Synchronize(a)

	delta := localsearch.NewDelta()
	require.True(t, op.MakeNextNeighbor(delta))
	require.True(t, delta.Freed(f.nexts[0]))
	require.True(t, delta.Freed(f.nexts[1]))
	require.True(t, delta.Freed(f.nexts[2]))
	require.True(t, delta.Freed(active[2]))
	require.False(t, delta.Freed(active[1]))
	require.False(t, op.MakeNextNeighbor(delta))
}

func indexOf(nodes []int64, node int64) int {
	for i, n := range nodes {
		if n == node {
			return i
		}
	}
	return -1
}
