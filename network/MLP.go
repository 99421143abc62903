package network

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP is a multi-layered perceptron with a single output, used as a
// state value function
type MLP struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	features   int
	batchSize  int
	prediction *G.Node
	predVal    G.Value

	hiddenSizes []int
	biases      []bool
	activations []*Activation

	learnables G.Nodes
	model      []G.ValueGrad

	// Networks used by Apply, one per batch size
	mu       sync.Mutex
	appliers map[int]*applier
}

type applier struct {
	net *MLP
	vm  G.VM
}

// NewMLP creates a new MLP in the graph g. The MLP has
// len(hiddenSizes) + 1 layers. For hidden layer i, hiddenSizes[i] is
// the number of units, biases[i] is whether the layer has a bias unit,
// and activations[i] is its activation function. The final layer maps
// to a single output with a bias unit and no activation. The parameter
// init determines the weight initialization scheme.
func NewMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation) (*MLP, error) {
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newMLP: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newMLP: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(biases))
	}
	if features <= 0 || batch <= 0 {
		return nil, fmt.Errorf("newMLP: features and batch size must be "+
			"positive, have(%v, %v)", features, batch)
	}
	for i, size := range hiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newMLP: hidden layer %v has size %v", i,
				size)
		}
	}

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	net := &MLP{
		g:           g,
		input:       input,
		features:    features,
		batchSize:   batch,
		hiddenSizes: append([]int(nil), hiddenSizes...),
		biases:      append([]bool(nil), biases...),
		activations: append([]*Activation(nil), activations...),
		appliers:    make(map[int]*applier),
	}

	in := features
	for i, size := range hiddenSizes {
		net.layers = append(net.layers, newFCLayer(g, in, size, biases[i],
			init, activations[i], i))
		in = size
	}
	net.layers = append(net.layers, newFCLayer(g, in, 1, true, init,
		nil, len(hiddenSizes)))

	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newMLP: could not compute forward pass: %v",
			err)
	}
	return net, nil
}

// NewLinear returns a linear value function: an MLP without hidden
// layers
func NewLinear(features, batch int, g *G.ExprGraph,
	init G.InitWFn) (*MLP, error) {
	return NewMLP(features, batch, g, nil, nil, init, nil)
}

// fwd adds the forward pass of the MLP to its graph
func (m *MLP) fwd() error {
	pred := m.input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: layer %v: %v", i, err)
		}
	}
	m.prediction = pred
	G.Read(m.prediction, &m.predVal)
	return nil
}

// Graph returns the computational graph of the MLP
func (m *MLP) Graph() *G.ExprGraph { return m.g }

// BatchSize returns the number of rows of the input to the MLP
func (m *MLP) BatchSize() int { return m.batchSize }

// Features returns the number of features of a single input row
func (m *MLP) Features() int { return m.features }

// SetInput sets the value of the input node before running the
// forward pass. The input is given in row major order.
func (m *MLP) SetInput(input []float64) error {
	if len(input) != m.features*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.features*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Learnables returns the learnable nodes of the MLP
func (m *MLP) Learnables() G.Nodes {
	if m.learnables == nil {
		for _, l := range m.layers {
			m.learnables = append(m.learnables, l.learnables()...)
		}
	}
	return m.learnables
}

// Model returns the learnable nodes with their gradients
func (m *MLP) Model() []G.ValueGrad {
	if m.model == nil {
		for _, node := range m.Learnables() {
			m.model = append(m.model, node)
		}
	}
	return m.model
}

// Prediction returns the node holding the output of the MLP
func (m *MLP) Prediction() *G.Node { return m.prediction }

// Output returns the value of the prediction after the graph has been
// run
func (m *MLP) Output() G.Value { return m.predVal }

// CloneWithBatch returns a copy of the MLP in a new graph with a new
// input batch size
func (m *MLP) CloneWithBatch(batch int) (*MLP, error) {
	net, err := NewMLP(m.features, batch, G.NewGraph(), m.hiddenSizes,
		m.biases, G.Zeroes(), m.activations)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	if err := Set(net, m); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	return net, nil
}

// Apply computes the value of each row of obs with the current weights
// of the MLP
func (m *MLP) Apply(obs mat.Matrix) (*mat.VecDense, error) {
	rows, cols := obs.Dims()
	if cols != m.features {
		return nil, fmt.Errorf("apply: invalid number of features"+
			"\n\twant(%v)\n\thave(%v)", m.features, cols)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appliers[rows]
	if !ok {
		net, err := m.CloneWithBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("apply: %v", err)
		}
		a = &applier{net: net, vm: G.NewTapeMachine(net.Graph())}
		m.appliers[rows] = a
	} else if err := Set(a.net, m); err != nil {
		return nil, fmt.Errorf("apply: %v", err)
	}

	if err := a.net.SetInput(mat.DenseCopyOf(obs).RawMatrix().Data); err != nil {
		return nil, fmt.Errorf("apply: %v", err)
	}
	if err := a.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("apply: %v", err)
	}
	defer a.vm.Reset()

	out := a.net.Output().Data().([]float64)
	return mat.NewVecDense(rows, append([]float64(nil), out...)), nil
}

// Set sets the weights of dest to be equal to the weights of source
func Set(dest, source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: incompatible networks\n\twant(%v learnables)"+
			"\n\thave(%v learnables)", len(nodes), len(sourceNodes))
	}
	for i, node := range nodes {
		weights := sourceNodes[i].Value().(*tensor.Dense).Clone()
		if err := G.Let(node, weights); err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Polyak sets the weights of dest to the Polyak average
// (1 - tau) * dest + tau * source
func Polyak(dest, source NeuralNet, tau float64) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("polyak: incompatible networks")
	}
	for i := range nodes {
		weights, err := nodes[i].Value().(*tensor.Dense).MulScalar(1-tau,
			true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		sourceWeights, err := sourceNodes[i].Value().(*tensor.Dense).
			MulScalar(tau, true)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
		if err := G.Let(nodes[i], newWeights); err != nil {
			return fmt.Errorf("polyak: %v", err)
		}
	}
	return nil
}
