package ptsne

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func shannon(p []float64) float64 {
	var h float64
	for _, v := range p {
		if v > 0 {
			h -= v * math.Log(v)
		}
	}
	return h
}

// The calibrated row must be a probability distribution whose entropy hits
// log(perplexity) for well-conditioned distances.
func TestCalibrateRowMatchesPerplexity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	dist := make([]float64, 99)
	for i := range dist {
		dist[i] = rng.Float64() * 10
	}

	for _, perp := range []float64{5, 15, 30} {
		p := calibrateRow(dist, math.Log(perp), calibrationTol, maxCalibrationSteps)

		var sum float64
		for _, v := range p {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.InDelta(t, 1.0, sum, 1e-6, "perplexity %g", perp)
		require.InDelta(t, math.Log(perp), shannon(p), 1e-3, "perplexity %g", perp)
	}
}

// All-equal distances give a constant entropy, so the search can never
// converge; it must still terminate with a finite uniform-like row.
func TestCalibrateRowDegenerate(t *testing.T) {
	dist := make([]float64, 50)
	for i := range dist {
		dist[i] = 2.0
	}

	p := calibrateRow(dist, math.Log(10), calibrationTol, maxCalibrationSteps)

	var sum float64
	for _, v := range p {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		require.InDelta(t, 1.0/50, v, 1e-9)
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

// Huge distances underflow the partition sum at beta = 1; the search must
// recover by loosening the kernel rather than propagating NaN.
func TestCalibrateRowExtremeDistances(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	dist := make([]float64, 40)
	for i := range dist {
		dist[i] = 1e8 * (1 + rng.Float64())
	}

	p := calibrateRow(dist, math.Log(5), calibrationTol, maxCalibrationSteps)

	var sum float64
	for _, v := range p {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		require.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	require.InDelta(t, 1.0, sum, 1e-6)
}

func TestHbetaStaysFinite(t *testing.T) {
	dist := []float64{1e12, 2e12, 3e12}
	p := make([]float64, len(dist))

	h := hbeta(dist, 1e6, p)

	require.False(t, math.IsNaN(h))
	for _, v := range p {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestSquaredDistances(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{
		0, 0,
		3, 4,
		0, 1,
	})

	d := squaredDistances(x)

	require.InDelta(t, 0.0, d.At(0, 0), 1e-12)
	require.InDelta(t, 25.0, d.At(0, 1), 1e-9)
	require.InDelta(t, 25.0, d.At(1, 0), 1e-9)
	require.InDelta(t, 1.0, d.At(0, 2), 1e-9)
	require.InDelta(t, 18.0, d.At(1, 2), 1e-9)
}
