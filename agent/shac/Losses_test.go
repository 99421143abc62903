package shac

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-9

// column returns a [T, 1] batch of a single rollout
func column(rewards, values, truncation, termination []float64,
	bootstrap float64) Batch {
	t := len(rewards)
	b := Batch{
		Rewards:     mat.NewDense(t, 1, rewards),
		Truncation:  mat.NewDense(t, 1, truncation),
		Termination: mat.NewDense(t, 1, termination),
		Bootstrap:   mat.NewVecDense(1, []float64{bootstrap}),
	}
	if values != nil {
		b.Values = mat.NewDense(t, 1, values)
	}
	return b
}

func TestTerminationAtLastStep(t *testing.T) {
	b := column(
		[]float64{1, 1, 1, 1},
		[]float64{0.5, 0.5, 0.5, 0.5},
		[]float64{0, 0, 0, 0},
		[]float64{0, 0, 0, 1},
		0,
	)

	returns, err := PolicyReturns(b, 0.9)
	if err != nil {
		t.Fatal(err)
	}

	// The terminal step restarts the discount and adds no reward
	want := 0.9 + 0.81 + 0.729
	if math.Abs(returns.AtVec(0)-want) > tolerance {
		t.Errorf("returns: want(%v) have(%v)", want, returns.AtVec(0))
	}
	loss, err := PolicyLoss(b, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(loss+want/4) > tolerance {
		t.Errorf("policy loss: want(%v) have(%v)", -want/4, loss)
	}

	vs, err := TargetValues(b, 0.9, 0.95, true)
	if err != nil {
		t.Fatal(err)
	}
	wantVs := []float64{3.2516744105546875, 2.624663125, 1.8775, 1.0}
	if have := mat.Col(nil, 0, vs); !floats.EqualApprox(have, wantVs,
		tolerance) {
		t.Errorf("targets: want(%v) have(%v)", wantVs, have)
	}
	if vs.At(3, 0) != 1 {
		t.Errorf("terminal target: want(1) have(%v)", vs.At(3, 0))
	}
}

func TestPolicyTerminationBoundary(t *testing.T) {
	const k, horizon, discount = 2, 6, 0.9
	termination := make([]float64, horizon)
	termination[k] = 1

	// Place a single unit reward at each step in turn
	have := make([]float64, horizon)
	for j := 0; j < horizon; j++ {
		rewards := make([]float64, horizon)
		rewards[j] = 1
		b := column(rewards, nil, make([]float64, horizon), termination, 0)
		returns, err := PolicyReturns(b, discount)
		if err != nil {
			t.Fatal(err)
		}
		have[j] = returns.AtVec(0)
	}

	want := []float64{0.9, 0.81, 0, 0.9, 0.81, 0.729}
	if !floats.EqualApprox(have, want, tolerance) {
		t.Errorf("reward weights: want(%v) have(%v)", want, have)
	}

	coef, w, err := PolicyCoefficients(mat.NewDense(horizon, 1, nil),
		mat.NewDense(horizon, 1, termination), discount)
	if err != nil {
		t.Fatal(err)
	}
	if c := mat.Col(nil, 0, coef); !floats.EqualApprox(c, want, tolerance) {
		t.Errorf("coefficients: want(%v) have(%v)", want, c)
	}
	if math.Abs(w-math.Pow(discount, horizon)) > tolerance {
		t.Errorf("bootstrap weight: want(%v) have(%v)",
			math.Pow(discount, horizon), w)
	}
}

func TestPolicyTruncation(t *testing.T) {
	b := column(
		[]float64{1, 1, 1},
		nil,
		[]float64{0, 1, 0},
		[]float64{0, 0, 0},
		2,
	)
	returns, err := PolicyReturns(b, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	// The truncated step adds no reward but still discounts
	want := 2*0.125 + 0.5 + 0.125
	if math.Abs(returns.AtVec(0)-want) > tolerance {
		t.Errorf("returns: want(%v) have(%v)", want, returns.AtVec(0))
	}

	// Termination is authoritative when both flags are set
	b.Termination.Set(1, 0, 1)
	returns, err = PolicyReturns(b, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	want = 2*0.125 + 0.5 + 0.5
	if math.Abs(returns.AtVec(0)-want) > tolerance {
		t.Errorf("returns: want(%v) have(%v)", want, returns.AtVec(0))
	}
}

func TestTargetValues(t *testing.T) {
	rewards := []float64{1, 2, 3}
	values := []float64{0.5, 1, 2}

	tests := map[string]struct {
		termination []float64
		lambda      float64
		want        []float64
	}{
		"lambda": {[]float64{0, 0, 0}, 0.95,
			[]float64{5.125238681507032, 4.8295161875, 3.22275}},
		"lambda one": {[]float64{0, 0, 0}, 1,
			[]float64{5.23, 4.7, 3.0}},
		"terminated": {[]float64{0, 1, 0}, 0.5,
			[]float64{3.16, 3.8, 5.025}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			b := column(rewards, values, make([]float64, 3), test.termination,
				4)
			vs, err := TargetValues(b, 0.9, test.lambda, true)
			if err != nil {
				t.Fatal(err)
			}
			have := mat.Col(nil, 0, vs)
			if !floats.EqualApprox(have, test.want, tolerance) {
				t.Errorf("targets: want(%v) have(%v)", test.want, have)
			}
		})
	}
}

func TestLambdaZeroIsOneStep(t *testing.T) {
	rewards := mat.NewDense(4, 2, []float64{
		1, -1,
		0.5, 2,
		3, 0,
		-2, 1,
	})
	values := mat.NewDense(4, 2, []float64{
		0.1, 0.2,
		0.3, 0.4,
		0.5, 0.6,
		0.7, 0.8,
	})
	termination := mat.NewDense(4, 2, []float64{
		0, 0,
		1, 0,
		0, 0,
		0, 1,
	})
	b := Batch{
		Rewards:     rewards,
		Values:      values,
		Truncation:  mat.NewDense(4, 2, nil),
		Termination: termination,
		Bootstrap:   mat.NewVecDense(2, []float64{-1, 3}),
	}

	lambda, err := TargetValues(b, 0.8, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	oneStep, err := TargetValues(b, 0.8, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(lambda, oneStep, tolerance) {
		t.Errorf("λ=0 targets: want(%v) have(%v)", mat.Formatted(oneStep),
			mat.Formatted(lambda))
	}

	// r + γ * v'
	if want := 1 + 0.8*3.0; math.Abs(oneStep.At(3, 1)-want) > tolerance {
		t.Errorf("last target: want(%v) have(%v)", want, oneStep.At(3, 1))
	}
	if want := 0.5 + 0.8*0.5; math.Abs(oneStep.At(1, 0)-want) > tolerance {
		t.Errorf("target: want(%v) have(%v)", want, oneStep.At(1, 0))
	}

	// Rollouts are independent
	b.Rewards.Set(0, 1, 100)
	changed, err := TargetValues(b, 0.8, 0.9, true)
	if err != nil {
		t.Fatal(err)
	}
	b.Rewards.Set(0, 1, -1)
	original, err := TargetValues(b, 0.8, 0.9, true)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(mat.Col(nil, 0, changed), mat.Col(nil, 0, original)) {
		t.Error("targets of one rollout depend on another rollout")
	}
}

func TestValueLoss(t *testing.T) {
	targets := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	values := mat.NewDense(2, 2, []float64{0, 2, 3, 6})
	loss, err := ValueLoss(targets, values)
	if err != nil {
		t.Fatal(err)
	}

	// mean(1, 0, 0, 4) * 0.25
	if want := 1.25 * 0.25; loss != want {
		t.Errorf("value loss: want(%v) have(%v)", want, loss)
	}

	if _, err := ValueLoss(targets, mat.NewDense(2, 1, nil)); !IsShapeError(err) {
		t.Errorf("value loss: want shape error, have(%v)", err)
	}
}

func TestInvalidInputs(t *testing.T) {
	valid := column([]float64{1, 1}, []float64{0, 0}, []float64{0, 0},
		[]float64{0, 0}, 0)

	shape := valid
	shape.Values = mat.NewDense(3, 1, nil)
	if _, err := TargetValues(shape, 0.9, 0.9, true); !IsShapeError(err) {
		t.Errorf("values: want shape error, have(%v)", err)
	}

	shape = valid
	shape.Bootstrap = mat.NewVecDense(2, nil)
	if _, err := PolicyLoss(shape, 0.9); !IsShapeError(err) {
		t.Errorf("bootstrap: want shape error, have(%v)", err)
	}

	shape = valid
	shape.Termination = nil
	if _, err := PolicyLoss(shape, 0.9); !IsShapeError(err) {
		t.Errorf("termination: want shape error, have(%v)", err)
	}

	flags := valid
	flags.Truncation = mat.NewDense(2, 1, []float64{0, 0.5})
	if _, err := PolicyLoss(flags, 0.9); err == nil {
		t.Error("flags: expected error for non-binary truncation")
	}

	if _, err := PolicyLoss(Batch{}, 0.9); err == nil {
		t.Error("empty: expected error for zero horizon")
	}
	if _, err := PolicyLoss(valid, 1.5); err == nil {
		t.Error("discount: expected error for discount > 1")
	}
	if _, err := TargetValues(valid, 0.9, -0.1, true); err == nil {
		t.Error("lambda: expected error for λ < 0")
	}
	if _, err := TargetValues(valid, 0.9, math.NaN(), true); err == nil {
		t.Error("lambda: expected error for NaN λ")
	}
}

func TestTermination(t *testing.T) {
	discount := mat.NewDense(1, 4, []float64{1, 0, 0, 1})
	truncation := mat.NewDense(1, 4, []float64{0, 0, 1, 1})
	term, err := Termination(discount, truncation)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 1, 0, 0}
	if have := mat.Row(nil, 0, term); !floats.Equal(have, want) {
		t.Errorf("termination: want(%v) have(%v)", want, have)
	}
}
