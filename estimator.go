package ptsne

import (
	"io"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/chunfuchen/Multiscale-Parametric-t-SNE/network"
)

// ParametricTSNE learns a parametric t-SNE embedding. It owns the trained
// network exclusively: Fit builds a fresh one sized to the data, and nothing
// outside the estimator can touch its parameters.
//
// A ParametricTSNE must not be used from multiple goroutines concurrently.
type ParametricTSNE struct {
	cfg Config
	rng *rand.Rand
	net *network.Network
}

// New returns an unfitted estimator with the given configuration. The
// configuration is validated on Fit, not here.
func New(cfg Config) *ParametricTSNE {
	return &ParametricTSNE{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Fit trains a fresh network on x (one sample per row, features ideally
// standardized beforehand).
//
// A zero or too-large Config.BatchSize is clamped to the sample count. When
// the sample count is not a multiple of the batch size, the trailing
// remainder of samples is dropped from training so every batch is
// full-sized; the drop is reported through Config.Logger. Refitting a fitted
// estimator replaces the previous network.
func (t *ParametricTSNE) Fit(x mat.Matrix) error {
	_, err := t.fit(x)
	return err
}

// fit does the work of Fit and returns the (possibly truncated) data the
// network was trained on.
func (t *ParametricTSNE) fit(x mat.Matrix) (*mat.Dense, error) {
	if x == nil {
		return nil, NilArgError{"x"}
	}
	if err := t.cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid configuration")
	}

	n, d := x.Dims()
	if n < 2 {
		return nil, errors.Errorf("need at least 2 samples to fit (%d)", n)
	}

	batchSize := t.cfg.BatchSize
	if batchSize <= 0 || batchSize > n {
		batchSize = n
	}

	data := mat.DenseCopyOf(x)
	if rem := n % batchSize; rem > 0 {
		if t.cfg.Logger != nil {
			t.cfg.Logger.Warn("dropping trailing samples to fit batch size",
				"samples", n, "batchSize", batchSize, "dropped", rem)
		}
		n -= rem
		data = data.Slice(0, n, 0, d).(*mat.Dense)
	}

	net, err := network.New(d, t.cfg.HiddenLayers, t.cfg.NComponents, network.Config{
		Alpha:        t.cfg.Alpha,
		LearningRate: t.cfg.LearningRate,
		Seed:         t.cfg.Seed,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "building the embedding network failed")
	}

	if err := trainEmbedder(t.cfg, data, net, batchSize, t.rng); err != nil {
		return nil, errors.Wrapf(err, "training failed")
	}

	t.net = net
	return data, nil
}

// Transform embeds x through the trained network, one sample per row.
// It returns ErrNotFitted if Fit has not completed successfully.
func (t *ParametricTSNE) Transform(x mat.Matrix) (*mat.Dense, error) {
	if t.net == nil {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, NilArgError{"x"}
	}

	y, err := t.net.Predict(x)
	if err != nil {
		return nil, errors.Wrapf(err, "forward pass failed")
	}
	return y, nil
}

// FitTransform fits the estimator on x and returns the embedding of the data
// it was trained on. When the sample count is truncated to a multiple of the
// batch size, the dropped trailing samples are absent from the result as
// well; embed them explicitly with Transform if they are needed.
func (t *ParametricTSNE) FitTransform(x mat.Matrix) (*mat.Dense, error) {
	data, err := t.fit(x)
	if err != nil {
		return nil, err
	}
	return t.Transform(data)
}

// Fitted reports whether a network has been trained.
func (t *ParametricTSNE) Fitted() bool {
	return t.net != nil
}

// SaveNetwork writes the trained network's weights to w, so that the mapping
// can be restored later without refitting. Returns ErrNotFitted before any
// successful Fit.
func (t *ParametricTSNE) SaveNetwork(w io.Writer) error {
	if t.net == nil {
		return ErrNotFitted
	}
	return t.net.Save(w)
}

// RestoreNetwork replaces the estimator's network with one previously
// written by SaveNetwork, making Transform usable without a Fit.
func (t *ParametricTSNE) RestoreNetwork(r io.Reader) error {
	net, err := network.Load(r)
	if err != nil {
		return errors.Wrapf(err, "restoring the embedding network failed")
	}
	t.net = net
	return nil
}
