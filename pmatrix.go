package ptsne

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/chunfuchen/Multiscale-Parametric-t-SNE/utils"
)

// probabilityFloor is the lower bound applied to every off-diagonal entry of
// the similarity matrix so that no gradient term is exactly zero. 1e-12
// matches the reference pipeline; see DESIGN.md for the 1e-8 variant that
// was rejected.
const probabilityFloor = 1e-12

// jointProbabilities builds the symmetric joint similarity matrix for one
// block of points: per-row perplexity calibration, NaN containment,
// symmetrization by P + Pᵀ, global normalization to sum 1 and the
// probability floor. The diagonal is zero.
//
// Row calibrations are independent, so they are fanned out across the
// worker pool; each goroutine reads its own distance row and writes its own
// output row.
func jointProbabilities(x mat.Matrix, perplexity float64) *mat.Dense {
	n, _ := x.Dims()
	d := squaredDistances(x)
	logPerp := math.Log(perplexity)

	p := mat.NewDense(n, n, nil)

	calibrate := func(i int) {
		dist := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if j != i {
				dist = append(dist, d.At(i, j))
			}
		}

		row := calibrateRow(dist, logPerp, calibrationTol, maxCalibrationSteps)

		k := 0
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			v := row[k]
			k++
			if math.IsNaN(v) {
				// contain a degenerate row instead of poisoning the matrix
				v = 0
			}
			p.Set(i, j, v)
		}
	}

	opsPerThread, threadsPerCPU := 1, 1
	utils.MultiThread(0, n, calibrate, opsPerThread, threadsPerCPU)

	// symmetrize in place; the diagonal stays zero
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := p.At(i, j) + p.At(j, i)
			p.Set(i, j, v)
			p.Set(j, i, v)
		}
	}

	total := floats.Sum(p.RawMatrix().Data)
	if total < minPartitionSum {
		total = minPartitionSum
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			v := p.At(i, j) / total
			if v < probabilityFloor {
				v = probabilityFloor
			}
			p.Set(i, j, v)
		}
	}

	return p
}

// calculateP builds the training targets for the whole (already truncated)
// dataset, one batch-sized block at a time. The similarity matrix only ever
// models intra-block relationships, so the result is stored compactly as an
// n x batchSize matrix where rows [i, i+batchSize) hold the square matrix of
// block i. n must be a multiple of batchSize.
func calculateP(x *mat.Dense, batchSize int, perplexity float64) *mat.Dense {
	n, d := x.Dims()
	p := mat.NewDense(n, batchSize, nil)

	for i := 0; i < n; i += batchSize {
		block := jointProbabilities(x.Slice(i, i+batchSize, 0, d), perplexity)
		p.Slice(i, i+batchSize, 0, batchSize).(*mat.Dense).Copy(block)
	}

	return p
}
