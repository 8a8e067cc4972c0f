package network

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

func randomEmbedding(rng *rand.Rand, b, c int) *mat.Dense {
	y := mat.NewDense(b, c, nil)
	for i := 0; i < b; i++ {
		for j := 0; j < c; j++ {
			y.Set(i, j, 2*rng.Float64()-1)
		}
	}
	return y
}

// randomTargets builds a symmetric zero-diagonal similarity matrix summing
// to 1, the shape the training loop feeds in.
func randomTargets(rng *rand.Rand, b int) *mat.Dense {
	p := mat.NewDense(b, b, nil)
	var sum float64
	for i := 0; i < b; i++ {
		for j := i + 1; j < b; j++ {
			v := rng.Float64() + 0.01
			p.Set(i, j, v)
			p.Set(j, i, v)
			sum += 2 * v
		}
	}
	p.Scale(1/sum, p)
	return p
}

func TestStudentTProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(51))
	y := randomEmbedding(rng, 12, 2)

	for _, alpha := range []float64{1, 2.5} {
		q := studentT(y, alpha)

		var sum float64
		for i := 0; i < 12; i++ {
			require.Equal(t, 0.0, q.At(i, i))
			for j := 0; j < 12; j++ {
				if i == j {
					continue
				}
				require.InDelta(t, q.At(i, j), q.At(j, i), 1e-15)
				require.GreaterOrEqual(t, q.At(i, j), similarityFloor)
				sum += q.At(i, j)
			}
		}
		require.InDelta(t, 1.0, sum, 1e-9, "alpha %g", alpha)
	}
}

func TestKLLossNonNegativeAndZeroAtMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(52))
	y := randomEmbedding(rng, 8, 2)

	// targets equal to the embedding's own similarities give (near) zero loss
	q := studentT(y, 1)
	loss, _ := klLoss(q, y, 1)
	require.InDelta(t, 0.0, loss, 1e-9)

	p := randomTargets(rng, 8)
	loss, _ = klLoss(p, y, 1)
	require.Greater(t, loss, 0.0)
}

// The analytic gradient must agree with central finite differences of the
// loss itself.
func TestKLGradientMatchesFiniteDifferences(t *testing.T) {
	rng := rand.New(rand.NewSource(53))

	const b, c = 6, 2
	p := randomTargets(rng, b)
	y := randomEmbedding(rng, b, c)

	for _, alpha := range []float64{1, 2.5} {
		_, g := klLoss(p, y, alpha)

		f := func(flat []float64) float64 {
			yy := mat.NewDense(b, c, append([]float64(nil), flat...))
			loss, _ := klLoss(p, yy, alpha)
			return loss
		}

		flat := append([]float64(nil), y.RawMatrix().Data...)
		numeric := fd.Gradient(nil, f, flat, &fd.Settings{Formula: fd.Central})

		analytic := g.RawMatrix().Data
		for i := range numeric {
			require.InDelta(t, numeric[i], analytic[i], 1e-6, "alpha %g, coordinate %d", alpha, i)
		}
	}
}

func TestPairwiseSq(t *testing.T) {
	y := mat.NewDense(2, 2, []float64{0, 0, 3, 4})
	d := pairwiseSq(y)
	require.InDelta(t, 25.0, d.At(0, 1), 1e-9)
	require.InDelta(t, 25.0, d.At(1, 0), 1e-9)
	require.Equal(t, 0.0, d.At(0, 0))
	require.Equal(t, 0.0, d.At(1, 1))
}
