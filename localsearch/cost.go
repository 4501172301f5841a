package localsearch

// ArcCost prices a directed arc. Operators that need cost guidance
// (gain-driven reversal, exact reordering) receive one; plain
// structural operators never look at costs.
type ArcCost func(from, to int64) int64

const costInfinity = int64(^uint64(0) >> 1)

// satAdd adds without wrapping; sums saturate at costInfinity.
func satAdd(a, b int64) int64 {
	if a > 0 && b > costInfinity-a {
		return costInfinity
	}
	if a < 0 && b < -costInfinity-a {
		return -costInfinity
	}
	return a + b
}
