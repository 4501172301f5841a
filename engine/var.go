// IntVar: a reversible bounded integer variable.
//
// Representation: [min, max] plus a set of removed values strictly inside
// the interval. Removing a bound slides it past any holes, so min/max are
// always members of the domain. All writes go through the solver's trail.

package engine

import "fmt"

// IntVar is a bounded integer variable owned by a Solver. Do not copy.
type IntVar struct {
	s    *Solver
	id   int
	name string

	min, max int64
	removed  map[int64]struct{}

	rangeWatchers []int
	boundWatchers []int
}

// NewIntVar creates a variable with domain [min, max]. Returns an error
// wrapping ErrContract when min > max.
func (s *Solver) NewIntVar(min, max int64, name string) (*IntVar, error) {
	if min > max {
		return nil, fmt.Errorf("%w: NewIntVar(%d, %d)", ErrContract, min, max)
	}
	v := &IntVar{s: s, id: len(s.vars), name: name, min: min, max: max}
	s.vars = append(s.vars, v)
	return v, nil
}

// NewBoolVar creates a 0/1 variable.
func (s *Solver) NewBoolVar(name string) *IntVar {
	v, _ := s.NewIntVar(0, 1, name)
	return v
}

// NewConst creates a variable fixed to value.
func (s *Solver) NewConst(value int64, name string) *IntVar {
	v, _ := s.NewIntVar(value, value, name)
	return v
}

// Name returns the variable's name as given at creation.
func (v *IntVar) Name() string { return v.name }

// Min returns the domain minimum.
func (v *IntVar) Min() int64 { return v.min }

// Max returns the domain maximum.
func (v *IntVar) Max() int64 { return v.max }

// Bound reports whether the domain holds exactly one value.
func (v *IntVar) Bound() bool { return v.min == v.max }

// Value returns the single domain value. Valid only when Bound().
func (v *IntVar) Value() int64 { return v.min }

// Size returns the number of values in the domain. Holes that slid
// outside [min, max] after a bound change do not count.
func (v *IntVar) Size() int64 {
	n := v.max - v.min + 1
	for x := range v.removed {
		if x > v.min && x < v.max {
			n--
		}
	}
	return n
}

// Contains reports whether value is in the domain.
func (v *IntVar) Contains(value int64) bool {
	if value < v.min || value > v.max {
		return false
	}
	_, gone := v.removed[value]
	return !gone
}

// IterateValues calls fn on every domain value in increasing order until
// fn returns false. Cost is O(max-min); meant for the small enumerated
// domains (successors, vehicles), not for wide bounds-only variables.
func (v *IntVar) IterateValues(fn func(value int64) bool) {
	for x := v.min; x <= v.max; x++ {
		if _, gone := v.removed[x]; gone {
			continue
		}
		if !fn(x) {
			return
		}
	}
}

// SetMin raises the domain minimum. ErrFailed on wipeout.
func (v *IntVar) SetMin(min int64) error {
	if min <= v.min {
		return nil
	}
	if min > v.max {
		return ErrFailed
	}
	v.s.trailMin(v)
	v.min = min
	v.normalizeMin()
	if v.min > v.max {
		return ErrFailed
	}
	v.s.onChange(v, v.min == v.max)
	return nil
}

// SetMax lowers the domain maximum. ErrFailed on wipeout.
func (v *IntVar) SetMax(max int64) error {
	if max >= v.max {
		return nil
	}
	if max < v.min {
		return ErrFailed
	}
	v.s.trailMax(v)
	v.max = max
	v.normalizeMax()
	if v.min > v.max {
		return ErrFailed
	}
	v.s.onChange(v, v.min == v.max)
	return nil
}

// SetRange intersects the domain with [min, max].
func (v *IntVar) SetRange(min, max int64) error {
	if err := v.SetMin(min); err != nil {
		return err
	}
	return v.SetMax(max)
}

// SetValue binds the variable to value. ErrFailed when value is not in
// the domain.
func (v *IntVar) SetValue(value int64) error {
	if !v.Contains(value) {
		return ErrFailed
	}
	return v.SetRange(value, value)
}

// RemoveValue deletes one value from the domain. ErrFailed on wipeout.
func (v *IntVar) RemoveValue(value int64) error {
	if value < v.min || value > v.max {
		return nil
	}
	if _, gone := v.removed[value]; gone {
		return nil
	}
	switch value {
	case v.min:
		v.s.trailMin(v)
		v.min++
		v.normalizeMin()
	case v.max:
		v.s.trailMax(v)
		v.max--
		v.normalizeMax()
	default:
		if v.removed == nil {
			v.removed = make(map[int64]struct{})
		}
		v.s.trailRemove(v, value)
		v.removed[value] = struct{}{}
	}
	if v.min > v.max {
		return ErrFailed
	}
	v.s.onChange(v, v.min == v.max)
	return nil
}

// normalizeMin slides min forward past removed holes so the bound is
// always a domain member.
func (v *IntVar) normalizeMin() {
	for {
		if _, gone := v.removed[v.min]; !gone {
			return
		}
		v.min++
	}
}

func (v *IntVar) normalizeMax() {
	for {
		if _, gone := v.removed[v.max]; !gone {
			return
		}
		v.max--
	}
}

// saturating arithmetic, used where bounds may sit at the int64 edges

const (
	int64max = int64(^uint64(0) >> 1)
	int64min = -int64max - 1
)

func capAdd(a, b int64) int64 {
	if b > 0 && a > int64max-b {
		return int64max
	}
	if b < 0 && a < int64min-b {
		return int64min
	}
	return a + b
}

func capSub(a, b int64) int64 {
	if b == int64min {
		if a >= 0 {
			return int64max
		}
		return a - b
	}
	return capAdd(a, -b)
}
