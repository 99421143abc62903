package shac

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/shaclearn/network"
	"github.com/samuelfneumann/shaclearn/solver"
)

func TestCriticFitsTargets(t *testing.T) {
	net, err := network.NewLinear(1, 4, G.NewGraph(), G.Zeroes())
	if err != nil {
		t.Fatal(err)
	}
	s, err := solver.NewVanilla(0.5, 1, -1)
	if err != nil {
		t.Fatal(err)
	}
	critic, err := NewCritic(net, s)
	if err != nil {
		t.Fatal(err)
	}
	defer critic.Close()

	// Fit v(x) = 2x + 1
	obs := mat.NewDense(4, 1, []float64{-1, 0, 0.5, 1})
	targets := mat.NewVecDense(4, []float64{-1, 1, 2, 3})

	first, err := critic.Update(obs, targets)
	if err != nil {
		t.Fatal(err)
	}
	var last float64
	for i := 0; i < 300; i++ {
		if last, err = critic.Update(obs, targets); err != nil {
			t.Fatal(err)
		}
	}
	if last >= first || last > 1e-3 {
		t.Errorf("critic did not fit the targets: first(%v) last(%v)", first,
			last)
	}

	values, err := critic.Network().Apply(obs)
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(values, targets, 0.1) {
		t.Errorf("values: want(%v) have(%v)", mat.Formatted(targets.T()),
			mat.Formatted(values.T()))
	}

	if _, err := critic.Update(mat.NewDense(2, 1, nil), targets); !IsShapeError(err) {
		t.Errorf("update: want shape error, have(%v)", err)
	}
}
