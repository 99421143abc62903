package components

import (
	"encoding/json"
	"fmt"

	"github.com/samuelfneumann/shaclearn/sim"
)

// GroundRoot is the only body of the ground
const GroundRoot = "ground"

// GroundParams configures the ground plane, which takes no parameters
type GroundParams struct{}

func (g *GroundParams) setDefaults() {}

// Validate satisfies the Params interface
func (g *GroundParams) Validate() error { return nil }

func (g *GroundParams) describe(term json.RawMessage) (*Description,
	error) {
	if err := Decode(term, &struct{}{}); err != nil {
		return nil, fmt.Errorf("invalid term params: %v", err)
	}

	c := &sim.Config{
		Bodies: []sim.BodySpec{{
			Name:      GroundRoot,
			Frozen:    true,
			Colliders: []sim.Collider{{Shape: sim.Plane}},
		}},
	}

	return &Description{
		Root:             GroundRoot,
		Config:           c,
		Collides:         []string{GroundRoot},
		DefaultObservers: []string{},
	}, nil
}
