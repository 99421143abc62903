package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver. Adam
// solvers are only created from JSON descriptions.
type AdamConfig struct {
	StepSize float64
	Epsilon  float64
	Beta1    float64
	Beta2    float64
	Batch    int
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create() G.Solver {
	return G.NewAdamSolver(
		G.WithLearnRate(a.StepSize),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	)
}

func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}

// Validate checks that the moment decay rates lie in [0, 1)
func (a AdamConfig) Validate() error {
	if a.Beta1 < 0 || a.Beta1 >= 1 || a.Beta2 < 0 || a.Beta2 >= 1 {
		return fmt.Errorf("validate: betas must be in [0, 1), have(%v, %v)",
			a.Beta1, a.Beta2)
	}
	if a.Epsilon < 0 {
		return fmt.Errorf("validate: epsilon must be non-negative, have(%v)",
			a.Epsilon)
	}
	return validate(a.StepSize, a.Batch)
}
