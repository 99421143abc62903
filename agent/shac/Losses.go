package shac

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// policyCarry is the state of the forward scan of the short horizon
// return, one entry per rollout
type policyCarry struct {
	gam []float64
	acc []float64
}

// step folds one timestep into the carry. A terminated step restarts
// the discount horizon and adds no reward; a truncated step adds no
// reward.
func (c *policyCarry) step(rewards, truncation, termination []float64,
	discount float64) {
	for j := range c.acc {
		if termination[j] != 0 {
			c.gam[j] = 1
			continue
		}
		c.gam[j] *= discount
		c.acc[j] += (1 - truncation[j]) * c.gam[j] * rewards[j]
	}
}

// PolicyReturns returns the short horizon return of each of the B
// rollouts of b. With acc = bootstrap * discount^T and gam = 1, each
// timestep t in order updates
//
//	gam = termination[t] ? 1 : gam * discount
//	acc = acc + (1 - truncation[t]) * (termination[t] ? 0 : gam * rewards[t])
//
// Values are not used.
func PolicyReturns(b Batch, discount float64) (*mat.VecDense, error) {
	if err := validDiscount(discount); err != nil {
		return nil, fmt.Errorf("policyReturns: %w", err)
	}
	if err := b.validate("policyReturns", false); err != nil {
		return nil, err
	}
	t, n := b.Dims()

	carry := policyCarry{
		gam: make([]float64, n),
		acc: make([]float64, n),
	}
	horizon := math.Pow(discount, float64(t))
	for j := 0; j < n; j++ {
		carry.gam[j] = 1
		carry.acc[j] = b.Bootstrap.AtVec(j) * horizon
	}

	for i := 0; i < t; i++ {
		carry.step(b.Rewards.RawRowView(i), b.Truncation.RawRowView(i),
			b.Termination.RawRowView(i), discount)
	}
	return mat.NewVecDense(n, carry.acc), nil
}

// PolicyLoss returns the short horizon policy loss of b, the negated
// mean short horizon return divided by the horizon T
func PolicyLoss(b Batch, discount float64) (float64, error) {
	returns, err := PolicyReturns(b, discount)
	if err != nil {
		return 0, err
	}
	t, _ := b.Dims()
	return -stat.Mean(returns.RawVector().Data, nil) / float64(t), nil
}

// MeanRewardLoss returns the negated mean reward of b
func MeanRewardLoss(b Batch) (float64, error) {
	t, n := b.Dims()
	if t == 0 {
		return 0, fmt.Errorf("meanRewardLoss: horizon must be positive")
	}
	return -mat.Sum(b.Rewards) / float64(t*n), nil
}

// targetCarry is the state of the backward scan of the TD(λ) value
// targets, one entry per rollout
type targetCarry struct {
	ai  []float64
	bi  []float64
	lam []float64
}

// step folds one timestep into the carry and writes the value targets
// of the timestep to vs
func (c *targetCarry) step(rewards, nextValues, termination, vs []float64,
	discount, lambda float64) {
	for j := range vs {
		term, r, vNext := termination[j], rewards[j], nextValues[j]

		c.lam[j] = c.lam[j]*lambda*(1-term) + term

		// At λ = 1 the n-step term has zero weight and lam is always 1
		if lambda < 1 {
			c.ai[j] = (1 - term) * (c.lam[j]*discount*c.ai[j] +
				discount*vNext + (1-c.lam[j])/(1-lambda)*r)
		}
		c.bi[j] = discount*(vNext*term+c.bi[j]*(1-term)) + r

		vs[j] = (1-lambda)*c.ai[j] + c.lam[j]*c.bi[j]
	}
}

// TargetValues returns the [T, B] value targets of b. If tdLambda is
// set, the targets are the TD(λ) targets computed by a backward scan
// from the last timestep, starting with Ai = 1, Bi = 0, and lam = 1:
//
//	lam = lam * λ * (1 - term) + term
//	Ai  = (1 - term) * (lam * γ * Ai + γ * v' + (1 - lam) / (1 - λ) * r)
//	Bi  = γ * (v' * term + Bi * (1 - term)) + r
//	vs  = (1 - λ) * Ai + lam * Bi
//
// where v' is the value of the next state and the bootstrap value
// follows the last timestep. Otherwise, the targets are the one step
// targets r + γ * v'.
//
// The targets are new matrices and are not tied to any inputs.
func TargetValues(b Batch, discount, lambda float64,
	tdLambda bool) (*mat.Dense, error) {
	if err := validDiscount(discount); err != nil {
		return nil, fmt.Errorf("targetValues: %w", err)
	}
	if err := validLambda(lambda); err != nil {
		return nil, fmt.Errorf("targetValues: %w", err)
	}
	if err := b.validate("targetValues", true); err != nil {
		return nil, err
	}
	t, n := b.Dims()
	next := b.NextValues()

	vs := mat.NewDense(t, n, nil)
	if !tdLambda {
		vs.Scale(discount, next)
		vs.Add(vs, b.Rewards)
		return vs, nil
	}

	carry := targetCarry{
		ai:  make([]float64, n),
		bi:  make([]float64, n),
		lam: make([]float64, n),
	}
	floats.AddConst(1, carry.ai)
	floats.AddConst(1, carry.lam)

	for i := t - 1; i >= 0; i-- {
		carry.step(b.Rewards.RawRowView(i), next.RawRowView(i),
			b.Termination.RawRowView(i), vs.RawRowView(i), discount, lambda)
	}
	return vs, nil
}

// ValueLoss returns the critic loss: the mean squared error between
// the value targets and the values, scaled by 0.25
func ValueLoss(targets, values *mat.Dense) (float64, error) {
	if targets == nil || values == nil || targets.IsEmpty() ||
		values.IsEmpty() {
		return 0, fmt.Errorf("valueLoss: empty input")
	}
	r, c := targets.Dims()
	if vr, vc := values.Dims(); vr != r || vc != c {
		return 0, &ShapeError{Op: "valueLoss", Name: "values",
			Want: []int{r, c}, Have: []int{vr, vc}}
	}

	var diff mat.Dense
	diff.Sub(targets, values)
	diff.MulElem(&diff, &diff)
	return mat.Sum(&diff) / float64(r*c) * 0.5 * 0.5, nil
}
