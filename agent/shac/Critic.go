package shac

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/shaclearn/network"
	"github.com/samuelfneumann/shaclearn/solver"
)

// Critic fits a value function to fixed value targets by gradient
// descent on the critic loss
type Critic struct {
	net     *network.MLP
	targets *G.Node
	loss    *G.Node
	lossVal G.Value
	vm      G.VM
	solver  *solver.Solver
}

// NewCritic returns a new Critic training net with s. Each update uses
// exactly net.BatchSize() observations.
func NewCritic(net *network.MLP, s *solver.Solver) (*Critic, error) {
	if s == nil {
		return nil, fmt.Errorf("newCritic: nil solver")
	}
	targets := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(net.Prediction().Shape()...),
		G.WithName(uniqueName("valueTargets")),
		G.WithInit(G.Zeroes()),
	)

	loss, err := ValueLossNode(net.Prediction(), targets)
	if err != nil {
		return nil, fmt.Errorf("newCritic: %v", err)
	}
	c := &Critic{
		net:     net,
		targets: targets,
		loss:    loss,
		solver:  s,
	}
	G.Read(loss, &c.lossVal)

	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newCritic: %v", err)
	}
	c.vm = G.NewTapeMachine(net.Graph(),
		G.BindDualValues(net.Learnables()...))
	return c, nil
}

// Network returns the value function trained by the Critic
func (c *Critic) Network() *network.MLP {
	return c.net
}

// Update takes one gradient step fitting the values of obs, one
// observation per row, to targets. It returns the critic loss before
// the step.
func (c *Critic) Update(obs mat.Matrix, targets mat.Vector) (float64,
	error) {
	rows, _ := obs.Dims()
	if rows != c.net.BatchSize() || targets.Len() != rows {
		return 0, &ShapeError{Op: "update", Name: "observations",
			Want: []int{c.net.BatchSize()},
			Have: []int{rows, targets.Len()}}
	}

	if err := c.net.SetInput(mat.DenseCopyOf(obs).RawMatrix().Data); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	backing := make([]float64, rows)
	for i := range backing {
		backing[i] = targets.AtVec(i)
	}
	t := tensor.New(tensor.WithShape(c.targets.Shape()...),
		tensor.WithBacking(backing))
	if err := G.Let(c.targets, t); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}

	defer c.vm.Reset()
	if err := c.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	if err := c.solver.Step(c.net.Model()); err != nil {
		return 0, fmt.Errorf("update: %v", err)
	}
	return c.lossVal.Data().(float64), nil
}

// Close releases the resources of the Critic
func (c *Critic) Close() error {
	return c.vm.Close()
}
