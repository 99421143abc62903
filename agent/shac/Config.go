// Package shac implements the losses of Short-Horizon Actor-Critic:
// the short horizon policy objective, TD(λ) value targets, and the
// critic loss, both as plain functions over gonum matrices and as
// Gorgonia graph nodes which can be differentiated.
//
// Trajectories are [T, B] matrices: row t holds timestep t of each of
// the B rollouts in a batch.
package shac

import (
	"fmt"
	"math"
)

// Objective selects how the policy loss is computed
type Objective string

const (
	// ShortHorizon is the discounted short horizon return, bootstrapped
	// with the value of the state after the window
	ShortHorizon Objective = "short_horizon"

	// MeanReward is the negated mean reward of the window
	MeanReward Objective = "mean_reward"
)

// Config holds the hyperparameters of the SHAC loss
type Config struct {
	Discounting     float64   `json:"discounting"`
	Lambda          float64   `json:"lambda"`
	TDLambda        bool      `json:"td_lambda"`
	RewardScaling   float64   `json:"reward_scaling"`
	EntropyCost     float64   `json:"entropy_cost"`
	PolicyObjective Objective `json:"policy_objective"`
}

// DefaultConfig returns the default SHAC hyperparameters
func DefaultConfig() Config {
	return Config{
		Discounting:     0.9,
		Lambda:          0.95,
		TDLambda:        true,
		RewardScaling:   1.0,
		EntropyCost:     1e-4,
		PolicyObjective: ShortHorizon,
	}
}

// Validate checks that the Config is valid
func (c Config) Validate() error {
	if err := validDiscount(c.Discounting); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := validLambda(c.Lambda); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if math.IsNaN(c.RewardScaling) || math.IsInf(c.RewardScaling, 0) {
		return fmt.Errorf("validate: reward scaling must be finite, have(%v)",
			c.RewardScaling)
	}
	if c.EntropyCost < 0 {
		return fmt.Errorf("validate: entropy cost must be non-negative, "+
			"have(%v)", c.EntropyCost)
	}
	switch c.PolicyObjective {
	case ShortHorizon, MeanReward:
	default:
		return fmt.Errorf("validate: unknown policy objective %q",
			c.PolicyObjective)
	}
	return nil
}

func validDiscount(discount float64) error {
	if !(discount >= 0 && discount <= 1) {
		return fmt.Errorf("discount must be in [0, 1], have(%v)", discount)
	}
	return nil
}

func validLambda(lambda float64) error {
	if !(lambda >= 0 && lambda <= 1) {
		return fmt.Errorf("λ must be in [0, 1], have(%v)", lambda)
	}
	return nil
}
