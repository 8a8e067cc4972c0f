package ptsne

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Config holds every hyperparameter of the estimator. Zero values are not
// usable on their own; start from DefaultConfig and override what you need.
type Config struct {
	// NComponents is the dimensionality of the embedding space.
	NComponents int

	// Perplexity is the target effective number of neighbors per point. It
	// controls the softness of the input-space Gaussian kernel and must be
	// greater than 1.
	Perplexity float64

	// NIter is the maximum number of training epochs.
	NIter int

	// BatchSize is the number of samples per gradient step. Zero (or anything
	// larger than the sample count) means the whole dataset is one batch. When
	// the sample count is not a multiple of the batch size, Fit drops the
	// trailing remainder so every batch is full-sized; the drop is reported
	// through Logger.
	BatchSize int

	// EarlyExaggerationEpochs is the number of initial epochs during which the
	// target similarities are scaled up by EarlyExaggerationValue. The scaling
	// is applied to a fresh copy each epoch and never compounds.
	EarlyExaggerationEpochs int

	// EarlyExaggerationValue multiplies the similarity matrix while early
	// exaggeration is active. Must be >= 1.
	EarlyExaggerationValue float64

	// EarlyStoppingEpochs is the patience budget: training stops once this
	// many consecutive epochs fail to improve the loss by more than
	// EarlyStoppingMinImprovement. Zero disables early stopping.
	EarlyStoppingEpochs int

	// EarlyStoppingMinImprovement is the minimum loss decrease that counts as
	// an improvement for the patience counter.
	EarlyStoppingMinImprovement float64

	// Alpha is the degrees-of-freedom parameter of the Student-t kernel used
	// in the embedding space. Must be positive.
	Alpha float64

	// HiddenLayers are the widths of the network's hidden ReLU layers, in
	// order from input to output.
	HiddenLayers []int

	// LearningRate is the Adam step size used for every parameter update.
	LearningRate float64

	// RecomputeEveryEpoch selects how the similarity matrix relates to
	// shuffling. When true (the default), every epoch draws a fresh global
	// permutation of the samples and rebuilds the block-local similarity
	// matrix for the new ordering. When false, the matrix is computed once
	// before training and each batch co-permutes its data rows and similarity
	// rows/columns instead, which is cheaper but trains against stale
	// similarities.
	RecomputeEveryEpoch bool

	// Seed feeds the shuffling and weight-initialization RNG, making runs
	// reproducible.
	Seed int64

	// Logger, when non-nil, receives epoch loss records, the early-stopping
	// notice and batch-truncation warnings. A nil Logger keeps the estimator
	// silent.
	Logger *slog.Logger
}

// DefaultConfig returns the standard hyperparameters: a 2-D embedding,
// perplexity 30, up to 1000 epochs of whole-dataset batches, 50 epochs of 4x
// early exaggeration, early stopping disabled, alpha 1 and the 1000/500/250
// hidden-layer profile.
func DefaultConfig() Config {
	return Config{
		NComponents:                 2,
		Perplexity:                  30,
		NIter:                       1000,
		BatchSize:                   0,
		EarlyExaggerationEpochs:     50,
		EarlyExaggerationValue:      4.0,
		EarlyStoppingEpochs:         0,
		EarlyStoppingMinImprovement: 0.01,
		Alpha:                       1,
		HiddenLayers:                []int{1000, 500, 250},
		LearningRate:                0.001,
		RecomputeEveryEpoch:         true,
		Seed:                        42,
	}
}

func (c Config) validate() error {
	if c.NComponents < 1 {
		return errors.Errorf("NComponents must be >= 1 (%d)", c.NComponents)
	}
	if c.Perplexity <= 1 {
		return errors.Errorf("Perplexity must be > 1 (%g)", c.Perplexity)
	}
	if c.NIter < 1 {
		return errors.Errorf("NIter must be >= 1 (%d)", c.NIter)
	}
	if c.BatchSize < 0 {
		return errors.Errorf("BatchSize must be >= 0 (%d)", c.BatchSize)
	}
	if c.EarlyExaggerationEpochs < 0 {
		return errors.Errorf("EarlyExaggerationEpochs must be >= 0 (%d)", c.EarlyExaggerationEpochs)
	}
	if c.EarlyExaggerationEpochs > 0 && c.EarlyExaggerationValue < 1 {
		return errors.Errorf("EarlyExaggerationValue must be >= 1 (%g)", c.EarlyExaggerationValue)
	}
	if c.EarlyStoppingEpochs < 0 {
		return errors.Errorf("EarlyStoppingEpochs must be >= 0 (%d)", c.EarlyStoppingEpochs)
	}
	if c.EarlyStoppingMinImprovement < 0 {
		return errors.Errorf("EarlyStoppingMinImprovement must be >= 0 (%g)", c.EarlyStoppingMinImprovement)
	}
	if c.Alpha <= 0 {
		return errors.Errorf("Alpha must be > 0 (%g)", c.Alpha)
	}
	for i, w := range c.HiddenLayers {
		if w < 1 {
			return errors.Errorf("HiddenLayers[%d] must be >= 1 (%d)", i, w)
		}
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("LearningRate must be > 0 (%g)", c.LearningRate)
	}
	return nil
}
