package environment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Reward
)

func (s SpecType) String() string {
	switch s {
	case Action:
		return "Action"
	case Observation:
		return "Observation"
	default:
		return "Reward"
	}
}

// Spec implements an environment specification, which tells the
// size and bounds of an action, observation, or reward in an
// environment. Bounds may be nil if the values are unbounded.
type Spec struct {
	Size       int
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
}

// NewSpec constructs a new environment specification with the given
// size and bounds
func NewSpec(size int, t SpecType, lowerBound,
	upperBound mat.Vector) (Spec, error) {
	if lowerBound != nil && lowerBound.Len() != size {
		return Spec{}, fmt.Errorf("newSpec: size %v must match lower "+
			"bounds length %v", size, lowerBound.Len())
	}
	if upperBound != nil && upperBound.Len() != size {
		return Spec{}, fmt.Errorf("newSpec: size %v must match upper "+
			"bounds length %v", size, upperBound.Len())
	}
	return Spec{size, t, lowerBound, upperBound}, nil
}

// NewBoundedSpec returns a Spec whose values all lie in [min, max]
func NewBoundedSpec(size int, t SpecType, min, max float64) Spec {
	if size == 0 {
		return Spec{Type: t}
	}
	lower := mat.NewVecDense(size, nil)
	upper := mat.NewVecDense(size, nil)
	for i := 0; i < size; i++ {
		lower.SetVec(i, min)
		upper.SetVec(i, max)
	}
	return Spec{size, t, lower, upper}
}

// Contains returns whether v has the size of the Spec and lies within
// its bounds
func (s Spec) Contains(v mat.Vector) bool {
	if v == nil {
		return s.Size == 0
	}
	if v.Len() != s.Size {
		return false
	}
	for i := 0; i < s.Size; i++ {
		if s.LowerBound != nil && v.AtVec(i) < s.LowerBound.AtVec(i) {
			return false
		}
		if s.UpperBound != nil && v.AtVec(i) > s.UpperBound.AtVec(i) {
			return false
		}
	}
	return true
}
