// Package network provides the trainable embedding function behind the
// ptsne estimator: a dense feed-forward network with ReLU hidden layers and
// a linear output, updated by Adam against the Student-t KL-divergence loss.
//
// The package exposes only capability methods (Predict, TrainOnBatch,
// Save/Load); parameters are never reachable from outside.
package network

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Config carries the non-architectural knobs of the network.
type Config struct {
	// Alpha is the Student-t degrees-of-freedom parameter of the loss.
	// Defaults to 1 when left zero.
	Alpha float64

	// LearningRate is the Adam step size. Defaults to 0.001 when left zero.
	LearningRate float64

	// Seed feeds the weight-initialization RNG.
	Seed int64
}

// Network is a dense feed-forward network mapping input vectors to embedding
// coordinates. It is not safe for concurrent use.
type Network struct {
	layers []*dense
	opt    *adam

	alpha float64
	lr    float64

	nIn, nOut int
}

// New builds a network with the given input dimension, hidden ReLU layer
// widths and linear output dimension. Weights start variance-scaled on the
// fan-in, biases at zero.
func New(nIn int, hidden []int, nOut int, cfg Config) (*Network, error) {
	if nIn < 1 {
		return nil, errors.Errorf("input dimension must be >= 1 (%d)", nIn)
	}
	if nOut < 1 {
		return nil, errors.Errorf("output dimension must be >= 1 (%d)", nOut)
	}
	for i, w := range hidden {
		if w < 1 {
			return nil, errors.Errorf("hidden layer %d must have width >= 1 (%d)", i, w)
		}
	}
	if cfg.Alpha == 0 {
		cfg.Alpha = 1
	} else if cfg.Alpha < 0 {
		return nil, errors.Errorf("alpha must be > 0 (%g)", cfg.Alpha)
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.001
	} else if cfg.LearningRate < 0 {
		return nil, errors.Errorf("learning rate must be > 0 (%g)", cfg.LearningRate)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	sizes := make([]int, 0, len(hidden)+2)
	sizes = append(sizes, nIn)
	sizes = append(sizes, hidden...)
	sizes = append(sizes, nOut)

	n := &Network{
		alpha: cfg.Alpha,
		lr:    cfg.LearningRate,
		nIn:   nIn,
		nOut:  nOut,
	}
	for i := 0; i+1 < len(sizes); i++ {
		relu := i+2 < len(sizes) // every layer but the output
		n.layers = append(n.layers, newDense(sizes[i], sizes[i+1], relu, rng))
	}
	n.opt = newAdam(n.lr, n.params())

	return n, nil
}

// Predict runs the forward pass over x, one sample per row, and returns the
// embedding coordinates.
func (n *Network) Predict(x mat.Matrix) (*mat.Dense, error) {
	if x == nil {
		return nil, errors.Errorf("input matrix is nil")
	}
	_, d := x.Dims()
	if d != n.nIn {
		return nil, errors.Errorf("input has %d features, network expects %d", d, n.nIn)
	}

	h := x
	for _, l := range n.layers {
		h = l.forward(h)
	}
	return h.(*mat.Dense), nil
}

// TrainOnBatch performs one gradient step: forward pass over x, KL loss
// against the target similarity matrix p, backpropagation and an Adam
// update. It returns the loss at the pre-update parameters.
func (n *Network) TrainOnBatch(x, p mat.Matrix) (float64, error) {
	if x == nil {
		return 0, errors.Errorf("input matrix is nil")
	}
	if p == nil {
		return 0, errors.Errorf("target similarity matrix is nil")
	}
	b, _ := x.Dims()
	pr, pc := p.Dims()
	if pr != b || pc != b {
		return 0, errors.Errorf("target similarities must be %dx%d to match the batch (%dx%d)", b, b, pr, pc)
	}

	y, err := n.Predict(x)
	if err != nil {
		return 0, err
	}

	loss, g := klLoss(p, y, n.alpha)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return loss, errors.Errorf("loss is not finite (%g)", loss)
	}

	for i := len(n.layers) - 1; i >= 0; i-- {
		g = n.layers[i].backward(g)
	}
	n.opt.update(n.params(), n.grads())

	return loss, nil
}

// params returns the flat parameter slices of every layer, weights then
// biases, aliasing the live values.
func (n *Network) params() [][]float64 {
	out := make([][]float64, 0, 2*len(n.layers))
	for _, l := range n.layers {
		out = append(out, l.w.RawMatrix().Data, l.b)
	}
	return out
}

// grads mirrors params with the gradients of the last backward pass.
func (n *Network) grads() [][]float64 {
	out := make([][]float64, 0, 2*len(n.layers))
	for _, l := range n.layers {
		out = append(out, l.gw.RawMatrix().Data, l.gb)
	}
	return out
}
