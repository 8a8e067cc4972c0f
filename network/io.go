package network

import (
	"encoding/json"
	"io"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// The JSON layout of a saved network. Optimizer moments are not persisted;
// a loaded network starts with a fresh Adam state, which is fine for serving
// the mapping and acceptable for resuming training.
type networkJSON struct {
	Alpha        float64     `json:"alpha"`
	LearningRate float64     `json:"learningRate"`
	Layers       []layerJSON `json:"layers"`
}

type layerJSON struct {
	In      int       `json:"in"`
	Out     int       `json:"out"`
	ReLU    bool      `json:"relu"`
	Weights []float64 `json:"weights"` // row-major, In x Out
	Biases  []float64 `json:"biases"`
}

// Save encodes the network's architecture and weights as JSON.
func (n *Network) Save(w io.Writer) error {
	enc := networkJSON{
		Alpha:        n.alpha,
		LearningRate: n.lr,
	}
	for _, l := range n.layers {
		in, out := l.w.Dims()
		weights := make([]float64, in*out)
		copy(weights, l.w.RawMatrix().Data)
		biases := make([]float64, len(l.b))
		copy(biases, l.b)

		enc.Layers = append(enc.Layers, layerJSON{
			In:      in,
			Out:     out,
			ReLU:    l.relu,
			Weights: weights,
			Biases:  biases,
		})
	}

	if err := json.NewEncoder(w).Encode(enc); err != nil {
		return errors.Wrapf(err, "encoding network to JSON failed")
	}
	return nil
}

// Load reconstructs a network previously written by Save.
func Load(r io.Reader) (*Network, error) {
	var dec networkJSON
	if err := json.NewDecoder(r).Decode(&dec); err != nil {
		return nil, errors.Wrapf(err, "decoding network JSON failed")
	}

	if len(dec.Layers) == 0 {
		return nil, errors.Errorf("saved network has no layers")
	}
	if dec.Alpha <= 0 {
		return nil, errors.Errorf("saved network has invalid alpha (%g)", dec.Alpha)
	}
	if dec.LearningRate <= 0 {
		return nil, errors.Errorf("saved network has invalid learning rate (%g)", dec.LearningRate)
	}

	n := &Network{
		alpha: dec.Alpha,
		lr:    dec.LearningRate,
		nIn:   dec.Layers[0].In,
		nOut:  dec.Layers[len(dec.Layers)-1].Out,
	}

	rng := rand.New(rand.NewSource(0))
	prevOut := dec.Layers[0].In
	for i, lj := range dec.Layers {
		if lj.In < 1 || lj.Out < 1 {
			return nil, errors.Errorf("layer %d has invalid dimensions (%dx%d)", i, lj.In, lj.Out)
		}
		if lj.In != prevOut {
			return nil, errors.Errorf("layer %d expects %d inputs but the previous layer produces %d", i, lj.In, prevOut)
		}
		if len(lj.Weights) != lj.In*lj.Out {
			return nil, errors.Errorf("layer %d has %d weights, want %d", i, len(lj.Weights), lj.In*lj.Out)
		}
		if len(lj.Biases) != lj.Out {
			return nil, errors.Errorf("layer %d has %d biases, want %d", i, len(lj.Biases), lj.Out)
		}

		l := newDense(lj.In, lj.Out, lj.ReLU, rng)
		l.w = mat.NewDense(lj.In, lj.Out, append([]float64(nil), lj.Weights...))
		copy(l.b, lj.Biases)
		n.layers = append(n.layers, l)

		prevOut = lj.Out
	}

	n.opt = newAdam(n.lr, n.params())
	return n, nil
}
