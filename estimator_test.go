package ptsne_test

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	ptsne "github.com/chunfuchen/Multiscale-Parametric-t-SNE"
)

func smallConfig() ptsne.Config {
	cfg := ptsne.DefaultConfig()
	cfg.Perplexity = 8
	cfg.NIter = 5
	cfg.EarlyExaggerationEpochs = 2
	cfg.HiddenLayers = []int{16, 8}
	return cfg
}

func gaussianBlob(rng *rand.Rand, x *mat.Dense, rows []int, center []float64) {
	for _, i := range rows {
		for j, c := range center {
			x.Set(i, j, c+rng.NormFloat64())
		}
	}
}

func TestTransformBeforeFit(t *testing.T) {
	est := ptsne.New(ptsne.DefaultConfig())

	_, err := est.Transform(mat.NewDense(3, 2, nil))
	require.ErrorIs(t, err, ptsne.ErrNotFitted)

	require.False(t, est.Fitted())
}

func TestFitRejectsInvalidConfig(t *testing.T) {
	cfg := ptsne.DefaultConfig()
	cfg.Perplexity = 1 // must be > 1

	err := ptsne.New(cfg).Fit(mat.NewDense(10, 2, nil))
	require.Error(t, err)
}

func TestFitTransformShape(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	x := mat.NewDense(60, 8, nil)
	for i := 0; i < 60; i++ {
		for j := 0; j < 8; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}

	y, err := ptsne.New(smallConfig()).FitTransform(x)
	require.NoError(t, err)

	n, c := y.Dims()
	require.Equal(t, 60, n)
	require.Equal(t, 2, c)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			v := y.At(i, j)
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	}
}

// 103 samples at batch size 25 train on (and embed) only the first 100; the
// remainder is dropped, not resurfaced. Transform still embeds everything.
func TestFitTruncatesToBatchMultiple(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	x := mat.NewDense(103, 4, nil)
	for i := 0; i < 103; i++ {
		for j := 0; j < 4; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}

	cfg := smallConfig()
	cfg.NIter = 2
	cfg.BatchSize = 25

	est := ptsne.New(cfg)
	y, err := est.FitTransform(x)
	require.NoError(t, err)

	n, c := y.Dims()
	require.Equal(t, 100, n)
	require.Equal(t, 2, c)

	all, err := est.Transform(x)
	require.NoError(t, err)
	n, _ = all.Dims()
	require.Equal(t, 103, n)
}

func TestSaveAndRestoreNetwork(t *testing.T) {
	rng := rand.New(rand.NewSource(33))
	x := mat.NewDense(30, 4, nil)
	for i := 0; i < 30; i++ {
		for j := 0; j < 4; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}

	cfg := smallConfig()
	cfg.NIter = 3

	est := ptsne.New(cfg)
	require.NoError(t, est.Fit(x))

	var buf bytes.Buffer
	require.NoError(t, est.SaveNetwork(&buf))

	restored := ptsne.New(cfg)
	require.NoError(t, restored.RestoreNetwork(&buf))
	require.True(t, restored.Fitted())

	want, err := est.Transform(x)
	require.NoError(t, err)
	got, err := restored.Transform(x)
	require.NoError(t, err)

	n, c := want.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			require.InDelta(t, want.At(i, j), got.At(i, j), 1e-12)
		}
	}
}

// Three well-separated Gaussian clusters must stay together in the
// embedding: each point's nearest neighbor should share its cluster far more
// often than the ~1/3 a random layout would give.
func TestEmbeddingPreservesClusters(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end training in short mode")
	}

	const (
		perCluster = 40
		n          = 3 * perCluster
		d          = 10
	)

	rng := rand.New(rand.NewSource(34))
	x := mat.NewDense(n, d, nil)
	labels := make([]int, n)

	centers := [][]float64{
		{20, 20, 20, 20, 20, 0, 0, 0, 0, 0},
		{-20, -20, 0, 0, 0, 20, 20, 0, 0, 0},
		{0, 0, -20, -20, 0, 0, 0, -20, 20, 20},
	}
	for c := 0; c < 3; c++ {
		rows := make([]int, perCluster)
		for k := range rows {
			rows[k] = c*perCluster + k
			labels[c*perCluster+k] = c
		}
		gaussianBlob(rng, x, rows, centers[c])
	}

	cfg := ptsne.DefaultConfig()
	cfg.Perplexity = 15
	cfg.NIter = 300
	cfg.EarlyExaggerationEpochs = 25
	cfg.HiddenLayers = []int{32, 16}
	cfg.LearningRate = 0.01
	cfg.Seed = 7

	y, err := ptsne.New(cfg).FitTransform(ptsne.Standardize(x))
	require.NoError(t, err)

	matches := 0
	for i := 0; i < n; i++ {
		best, bestDist := -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			dx := y.At(i, 0) - y.At(j, 0)
			dy := y.At(i, 1) - y.At(j, 1)
			if dist := dx*dx + dy*dy; dist < bestDist {
				best, bestDist = j, dist
			}
		}
		if labels[best] == labels[i] {
			matches++
		}
	}

	score := float64(matches) / float64(n)
	require.Greater(t, score, 0.75, "nearest-neighbor cluster preservation")
}
