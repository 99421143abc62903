package shac

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

var nodeID uint64

// uniqueName returns a node name which is unique across all graphs
func uniqueName(name string) string {
	return fmt.Sprintf("%v_%d", name, atomic.AddUint64(&nodeID, 1))
}

// PolicyCoefficients returns the [T, B] weights C of the rewards in the
// short horizon returns and the weight w of the bootstrap values, so
// that the return of rollout b is
//
//	w * bootstrap[b] + Σ_t C[t, b] * rewards[t, b]
//
// The weights only depend on the flags and the discount.
func PolicyCoefficients(truncation, termination *mat.Dense,
	discount float64) (*mat.Dense, float64, error) {
	if err := validDiscount(discount); err != nil {
		return nil, 0, fmt.Errorf("policyCoefficients: %w", err)
	}
	if truncation == nil || termination == nil || truncation.IsEmpty() {
		return nil, 0, fmt.Errorf("policyCoefficients: horizon must be " +
			"positive")
	}
	t, n := truncation.Dims()
	if r, c := termination.Dims(); r != t || c != n {
		return nil, 0, &ShapeError{Op: "policyCoefficients",
			Name: "termination", Want: []int{t, n}, Have: []int{r, c}}
	}

	coef := mat.NewDense(t, n, nil)
	for j := 0; j < n; j++ {
		gam := 1.0
		for i := 0; i < t; i++ {
			if termination.At(i, j) != 0 {
				gam = 1
				continue
			}
			gam *= discount
			coef.Set(i, j, (1-truncation.At(i, j))*gam)
		}
	}
	return coef, math.Pow(discount, float64(t)), nil
}

// PolicyLossNode adds the short horizon policy loss to the graph of
// rewards, a [T, B] matrix node, and bootstrap, a [B] vector node. The
// loss can be differentiated with respect to both.
func PolicyLossNode(rewards, bootstrap *G.Node, truncation,
	termination *mat.Dense, discount float64) (*G.Node, error) {
	if !rewards.IsMatrix() {
		return nil, fmt.Errorf("policyLossNode: rewards must be a matrix")
	}
	t, n := rewards.Shape()[0], rewards.Shape()[1]
	if r, c := truncation.Dims(); r != t || c != n {
		return nil, &ShapeError{Op: "policyLossNode", Name: "truncation",
			Want: []int{t, n}, Have: []int{r, c}}
	}
	if s := bootstrap.Shape(); s.TotalSize() != n {
		return nil, &ShapeError{Op: "policyLossNode", Name: "bootstrap",
			Want: []int{n}, Have: []int(s)}
	}

	coef, w, err := PolicyCoefficients(truncation, termination, discount)
	if err != nil {
		return nil, fmt.Errorf("policyLossNode: %w", err)
	}

	g := rewards.Graph()
	c := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(t, n),
		G.WithName(uniqueName("policyCoefficients")),
		G.WithValue(tensor.New(
			tensor.WithShape(t, n),
			tensor.WithBacking(coef.RawMatrix().Data),
		)),
	)

	// loss = -(w * mean(bootstrap) + Σ C ⊙ rewards / B) / T
	sum, err := G.Sum(G.Must(G.HadamardProd(c, rewards)))
	if err != nil {
		return nil, fmt.Errorf("policyLossNode: %w", err)
	}
	sum, err = G.Mul(sum, scalar(g, "rewardWeight", -1/float64(t*n)))
	if err != nil {
		return nil, fmt.Errorf("policyLossNode: %w", err)
	}
	boot, err := G.Mean(bootstrap)
	if err != nil {
		return nil, fmt.Errorf("policyLossNode: %w", err)
	}
	boot, err = G.Mul(boot, scalar(g, "bootstrapWeight", -w/float64(t)))
	if err != nil {
		return nil, fmt.Errorf("policyLossNode: %w", err)
	}
	return G.Add(sum, boot)
}

// ValueLossNode adds the critic loss between a values node and a
// targets node of the same shape to their graph. Gradients only flow
// into values; targets are treated as constants.
func ValueLossNode(values, targets *G.Node) (*G.Node, error) {
	if !values.Shape().Eq(targets.Shape()) {
		return nil, &ShapeError{Op: "valueLossNode", Name: "targets",
			Want: []int(values.Shape()), Have: []int(targets.Shape())}
	}
	loss, err := G.Sub(targets, values)
	if err != nil {
		return nil, fmt.Errorf("valueLossNode: %w", err)
	}
	if loss, err = G.Square(loss); err != nil {
		return nil, fmt.Errorf("valueLossNode: %w", err)
	}
	if loss, err = G.Mean(loss); err != nil {
		return nil, fmt.Errorf("valueLossNode: %w", err)
	}
	return G.Mul(loss, scalar(values.Graph(), "valueLossScale", 0.25))
}

func scalar(g *G.ExprGraph, name string, v float64) *G.Node {
	return G.NewScalar(g, tensor.Float64, G.WithName(uniqueName(name)),
		G.WithValue(v))
}
