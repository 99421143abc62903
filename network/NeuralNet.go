// Package network implements feed forward value networks in Gorgonia
// computational graphs.
package network

import (
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a feed forward network built into a Gorgonia graph. The
// input of the network is a [BatchSize, Features] matrix and its
// prediction is a [BatchSize, 1] matrix.
type NeuralNet interface {
	Graph() *G.ExprGraph
	BatchSize() int
	Features() int
	SetInput([]float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Prediction() *G.Node
	Output() G.Value
}

// Applier computes one output for each row of a matrix of
// observations. An Applier must not modify its input.
type Applier interface {
	Apply(obs mat.Matrix) (*mat.VecDense, error)
}
