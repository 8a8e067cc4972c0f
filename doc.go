// Package ptsne implements parametric t-SNE: a dense feed-forward network is
// trained to map high-dimensional points into a low-dimensional embedding
// whose Student-t pairwise similarities match a Gaussian similarity
// distribution calibrated on the input space. Because the mapping is a
// trained function rather than a per-point optimization, new points can be
// embedded after fitting without touching the training data again.
//
// The center of the package is the ParametricTSNE estimator:
//
//	t := ptsne.New(ptsne.DefaultConfig())
//	if err := t.Fit(X); err != nil {
//		return err
//	}
//	Y, err := t.Transform(X)
//
// or, for the common one-shot case, FitTransform. X is any gonum mat.Matrix
// with one sample per row; features should be standardized first (see
// Standardize).
//
// Fitting calibrates, per point, a Gaussian bandwidth whose conditional
// distribution hits the configured perplexity, assembles the symmetrized and
// normalized similarity matrix P per training block, and then minimizes the
// KL divergence between P and the network's output similarities with batched
// gradient steps, early exaggeration and loss-based early stopping. All
// knobs live in Config.
//
// The trained network itself lives in the subpackage "network"; the
// estimator owns one exclusively and replaces it on every Fit.
//
// Reference: L.J.P. van der Maaten. Learning a Parametric Embedding by
// Preserving Local Structure. AISTATS 2009.
package ptsne
