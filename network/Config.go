package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/shaclearn/initwfn"
)

// Config describes an MLP value function so that it can be read from a
// JSON configuration file
type Config struct {
	HiddenSizes []int            `json:"hidden_sizes"`
	Biases      []bool           `json:"biases"`
	Activations []*Activation    `json:"activations"`
	Init        *initwfn.InitWFn `json:"init"`
}

// Validate checks that the Config describes a valid MLP
func (c Config) Validate() error {
	if len(c.HiddenSizes) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", len(c.HiddenSizes), len(c.Biases))
	}
	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(c.HiddenSizes), len(c.Activations))
	}
	for i, act := range c.Activations {
		if act == nil {
			return fmt.Errorf("validate: missing activation for layer %v", i)
		}
	}
	if c.Init == nil {
		return fmt.Errorf("validate: missing weight initializer")
	}
	return nil
}

// Create returns the MLP described by the Config in the graph g
func (c Config) Create(features, batch int, g *G.ExprGraph) (*MLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}
	return NewMLP(features, batch, g, c.HiddenSizes, c.Biases,
		c.Init.InitWFn(), c.Activations)
}
