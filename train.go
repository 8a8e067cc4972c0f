package ptsne

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Embedder is the trainable mapping optimized by the training loop. The
// network subpackage provides the real implementation; the loop only ever
// talks to the capability methods, never to raw parameters.
type Embedder interface {
	// Predict runs the forward pass over one sample per row of x.
	Predict(x mat.Matrix) (*mat.Dense, error)

	// TrainOnBatch performs a single parameter update using x as the batch
	// inputs and p as the batch's target similarity matrix, returning the
	// scalar loss at the pre-update parameters.
	TrainOnBatch(x, p mat.Matrix) (float64, error)
}

// trainEmbedder drives the epoch/batch loop: shuffling, early exaggeration,
// batching, loss aggregation and early stopping. x must already be truncated
// to a multiple of batchSize. Early stopping is a normal termination, not an
// error.
func trainEmbedder(cfg Config, x *mat.Dense, emb Embedder, batchSize int, rng *rand.Rand) error {
	n, d := x.Dims()

	// In the stale-similarities mode the targets are built once up front;
	// batches then co-permute their data and similarity slices to keep
	// point-index correspondence intact.
	var pGlobal *mat.Dense
	if !cfg.RecomputeEveryEpoch {
		pGlobal = calculateP(x, batchSize, cfg.Perplexity)
	}

	esLoss := math.Inf(1)
	esPatience := cfg.EarlyStoppingEpochs

	for epoch := 0; epoch < cfg.NIter; epoch++ {
		data := x
		var p *mat.Dense

		if cfg.RecomputeEveryEpoch {
			perm := rng.Perm(n)
			data = permuteRows(x, perm)
			p = calculateP(data, batchSize, cfg.Perplexity)
			if epoch < cfg.EarlyExaggerationEpochs {
				// p is rebuilt every epoch, so scaling in place cannot compound
				p.Scale(cfg.EarlyExaggerationValue, p)
			}
		} else if epoch < cfg.EarlyExaggerationEpochs {
			p = mat.NewDense(n, batchSize, nil)
			p.Scale(cfg.EarlyExaggerationValue, pGlobal)
		} else {
			p = pGlobal
		}

		var loss float64
		numBatches := 0
		for i := 0; i < n; i += batchSize {
			var xb, pb mat.Matrix = data.Slice(i, i+batchSize, 0, d), p.Slice(i, i+batchSize, 0, batchSize)

			if !cfg.RecomputeEveryEpoch {
				// same permutation for the data rows and the similarity
				// rows+columns, so sample k still lines up with row/col k
				perm := rng.Perm(batchSize)
				xb = permuteRows(xb.(*mat.Dense), perm)
				pb = permuteSquare(pb, perm)
			}

			l, err := emb.TrainOnBatch(xb, pb)
			if err != nil {
				return errors.Wrapf(err, "training on batch %d of epoch %d failed", numBatches, epoch)
			}
			loss += l
			numBatches++
		}
		loss /= float64(numBatches)

		if cfg.Logger != nil && epoch%10 == 0 {
			cfg.Logger.Info("epoch finished", "epoch", epoch, "loss", loss)
		}

		if cfg.EarlyStoppingEpochs > 0 {
			if loss < esLoss && esLoss-loss > cfg.EarlyStoppingMinImprovement {
				esLoss = loss
				esPatience = cfg.EarlyStoppingEpochs
			} else {
				esPatience--
			}

			if esPatience == 0 {
				if cfg.Logger != nil {
					cfg.Logger.Info("early stopping", "epoch", epoch, "bestLoss", esLoss)
				}
				break
			}
		}
	}

	return nil
}

// permuteRows returns a copy of x with row i taken from x's row perm[i].
func permuteRows(x *mat.Dense, perm []int) *mat.Dense {
	_, d := x.Dims()
	out := mat.NewDense(len(perm), d, nil)
	for i, j := range perm {
		out.SetRow(i, x.RawRowView(j))
	}
	return out
}

// permuteSquare applies the same permutation to the rows and columns of a
// square matrix.
func permuteSquare(p mat.Matrix, perm []int) *mat.Dense {
	out := mat.NewDense(len(perm), len(perm), nil)
	for i, pi := range perm {
		for j, pj := range perm {
			out.Set(i, j, p.At(pi, pj))
		}
	}
	return out
}
