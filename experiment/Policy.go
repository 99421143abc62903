package experiment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/shaclearn/environment"
)

// Policy selects actions given observations
type Policy interface {
	SelectAction(obs *mat.VecDense) (*mat.VecDense, error)
}

// PolicyType names a Policy that can be described in a Config
type PolicyType string

const (
	ZeroPolicy    PolicyType = "zero"
	UniformPolicy PolicyType = "uniform"
)

// Zero is a Policy which always selects the zero action
type Zero struct {
	actions int
}

// NewZero returns a new Zero policy for actions of the given size
func NewZero(actions int) Zero {
	return Zero{actions}
}

// SelectAction returns the zero action, or nil if the environment
// takes no actions
func (z Zero) SelectAction(*mat.VecDense) (*mat.VecDense, error) {
	if z.actions == 0 {
		return nil, nil
	}
	return mat.NewVecDense(z.actions, nil), nil
}

// Uniform is a Policy which samples actions uniformly within the
// bounds of an action Spec
type Uniform struct {
	size    int
	starter environment.UniformStarter
}

// NewUniform returns a new Uniform policy sampling actions within the
// bounds of spec
func NewUniform(spec environment.Spec, seed uint64) (*Uniform, error) {
	if spec.Size == 0 {
		return &Uniform{}, nil
	}
	if spec.LowerBound == nil || spec.UpperBound == nil {
		return nil, fmt.Errorf("newUniform: action spec must be bounded")
	}
	bounds := make([]r1.Interval, spec.Size)
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: spec.LowerBound.AtVec(i),
			Max: spec.UpperBound.AtVec(i),
		}
	}
	return &Uniform{spec.Size, environment.NewUniformStarter(bounds, seed)},
		nil
}

// SelectAction samples an action, or returns nil if the environment
// takes no actions
func (u *Uniform) SelectAction(*mat.VecDense) (*mat.VecDense, error) {
	if u.size == 0 {
		return nil, nil
	}
	action := u.starter.Start()
	return mat.NewVecDense(len(action), action), nil
}
