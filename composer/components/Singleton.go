package components

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/samuelfneumann/shaclearn/sim"
)

// SingletonRoot is the only body of a singleton
const SingletonRoot = "cap"

// SingletonParams configures a single free spherical body
type SingletonParams struct {
	// Size is the radius of the body
	Size float64 `json:"size"`
}

func (s *SingletonParams) setDefaults() {
	s.Size = 1.0
}

// Validate satisfies the Params interface
func (s *SingletonParams) Validate() error {
	if s.Size <= 0 {
		return fmt.Errorf("size must be positive, have(%v)", s.Size)
	}
	return nil
}

func (s *SingletonParams) describe(term json.RawMessage) (*Description,
	error) {
	if err := Decode(term, &struct{}{}); err != nil {
		return nil, fmt.Errorf("invalid term params: %v", err)
	}

	c := &sim.Config{
		Bodies: []sim.BodySpec{{
			Name: SingletonRoot,
			Mass: math.Pow(s.Size, 3),
			Colliders: []sim.Collider{
				{Shape: sim.Sphere, Radius: s.Size},
			},
		}},
	}

	return &Description{
		Root:             SingletonRoot,
		Config:           c,
		Collides:         []string{SingletonRoot},
		DefaultObservers: []string{"root_z_joints"},
	}, nil
}
