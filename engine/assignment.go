package engine

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Assignment is a value snapshot over a set of variables. It does not
// hold domains, only (variable, value) pairs plus an optional objective
// value, and is the currency between search, collectors and callers.
type Assignment struct {
	vars   []*IntVar
	index  map[int]int // var id -> slot
	values []int64
	set    []bool

	objective         *IntVar
	objectiveValue    int64
	hasObjectiveValue bool
}

// NewAssignment returns an empty assignment.
func NewAssignment() *Assignment {
	return &Assignment{index: make(map[int]int)}
}

// Add registers v; re-adding an already registered variable is a no-op.
func (a *Assignment) Add(v *IntVar) {
	if _, ok := a.index[v.id]; ok {
		return
	}
	a.index[v.id] = len(a.vars)
	a.vars = append(a.vars, v)
	a.values = append(a.values, 0)
	a.set = append(a.set, false)
}

// AddVars registers every variable in vs.
func (a *Assignment) AddVars(vs []*IntVar) {
	for _, v := range vs {
		a.Add(v)
	}
}

// AddObjective declares v as the objective variable; its value is
// tracked separately from the element values.
func (a *Assignment) AddObjective(v *IntVar) {
	a.objective = v
}

// Objective returns the declared objective variable, or nil.
func (a *Assignment) Objective() *IntVar { return a.objective }

// Vars returns the registered variables in registration order.
func (a *Assignment) Vars() []*IntVar { return a.vars }

// Contains reports whether v is registered.
func (a *Assignment) Contains(v *IntVar) bool {
	_, ok := a.index[v.id]
	return ok
}

// HasValue reports whether v is registered and carries a stored value.
func (a *Assignment) HasValue(v *IntVar) bool {
	slot, ok := a.index[v.id]
	return ok && a.set[slot]
}

// Value returns the stored value of v; zero if none is stored.
func (a *Assignment) Value(v *IntVar) int64 {
	slot, ok := a.index[v.id]
	if !ok || !a.set[slot] {
		return 0
	}
	return a.values[slot]
}

// SetValue stores value for v, registering v if needed.
func (a *Assignment) SetValue(v *IntVar, value int64) {
	a.Add(v)
	slot := a.index[v.id]
	a.values[slot] = value
	a.set[slot] = true
}

// ObjectiveValue returns the stored objective value, zero if unset.
func (a *Assignment) ObjectiveValue() int64 { return a.objectiveValue }

// HasObjectiveValue reports whether an objective value is stored.
func (a *Assignment) HasObjectiveValue() bool { return a.hasObjectiveValue }

// SetObjectiveValue stores the objective value.
func (a *Assignment) SetObjectiveValue(value int64) {
	a.objectiveValue = value
	a.hasObjectiveValue = true
}

// Store captures the current value of every registered variable that is
// bound in the solver, and of the objective if bound. Unbound variables
// lose any previously stored value.
func (a *Assignment) Store() {
	for slot, v := range a.vars {
		if v.Bound() {
			a.values[slot] = v.Value()
			a.set[slot] = true
		} else {
			a.set[slot] = false
		}
	}
	if a.objective != nil && a.objective.Bound() {
		a.SetObjectiveValue(a.objective.Value())
	}
}

// Copy returns a deep copy sharing the variable pointers.
func (a *Assignment) Copy() *Assignment {
	cp := &Assignment{
		vars:              append([]*IntVar(nil), a.vars...),
		index:             make(map[int]int, len(a.index)),
		values:            append([]int64(nil), a.values...),
		set:               append([]bool(nil), a.set...),
		objective:         a.objective,
		objectiveValue:    a.objectiveValue,
		hasObjectiveValue: a.hasObjectiveValue,
	}
	for k, v := range a.index {
		cp.index[k] = v
	}
	return cp
}

// CopyFrom overwrites a's stored values with those of other for every
// variable registered in both. Variables only in a keep their state.
func (a *Assignment) CopyFrom(other *Assignment) {
	for slot, v := range other.vars {
		if !other.set[slot] {
			continue
		}
		a.SetValue(v, other.values[slot])
	}
	if other.hasObjectiveValue {
		a.SetObjectiveValue(other.objectiveValue)
	}
}

// assignmentDoc is the on-disk shape of an assignment.
type assignmentDoc struct {
	Objective *int64          `yaml:"objective,omitempty"`
	Vars      []assignmentVar `yaml:"vars"`
}

type assignmentVar struct {
	Name  string `yaml:"name"`
	Value int64  `yaml:"value"`
}

// Save writes the stored values to path as YAML. Variables are matched
// by name on load, so every registered variable should carry a unique
// name.
func (a *Assignment) Save(path string) error {
	doc := assignmentDoc{}
	if a.hasObjectiveValue {
		v := a.objectiveValue
		doc.Objective = &v
	}
	for slot, v := range a.vars {
		if !a.set[slot] {
			continue
		}
		doc.Vars = append(doc.Vars, assignmentVar{Name: v.Name(), Value: a.values[slot]})
	}
	sort.Slice(doc.Vars, func(i, j int) bool { return doc.Vars[i].Name < doc.Vars[j].Name })
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("engine: marshal assignment: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("engine: write assignment: %w", err)
	}
	return nil
}

// Load reads values from path and stores them onto registered variables
// matched by name. A name with no registered variable yields
// ErrUnknownVariable.
func (a *Assignment) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("engine: read assignment: %w", err)
	}
	var doc assignmentDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("engine: unmarshal assignment: %w", err)
	}
	byName := make(map[string]*IntVar, len(a.vars))
	for _, v := range a.vars {
		byName[v.Name()] = v
	}
	for _, av := range doc.Vars {
		v, ok := byName[av.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownVariable, av.Name)
		}
		a.SetValue(v, av.Value)
	}
	if doc.Objective != nil {
		a.SetObjectiveValue(*doc.Objective)
	}
	return nil
}
