package ptsne

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// calibrationTol is the entropy tolerance of the bandwidth search.
	calibrationTol = 1e-5

	// maxCalibrationSteps bounds the bandwidth search regardless of
	// convergence; on exhaustion the last valid row is returned as-is.
	maxCalibrationSteps = 50

	// minPartitionSum replaces a vanished sum of exponentials so that entropy
	// and row probabilities stay finite even when every kernel value
	// underflows.
	minPartitionSum = 1e-300
)

// squaredDistances returns the matrix of squared Euclidean distances between
// the rows of x, computed through D_ij = |x_i|^2 + |x_j|^2 - 2*x_i.x_j.
// Values are clamped at zero since the identity can go slightly negative in
// floating point.
func squaredDistances(x mat.Matrix) *mat.Dense {
	n, _ := x.Dims()

	var gram mat.Dense
	gram.Mul(x, x.T())

	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		gii := gram.At(i, i)
		for j := 0; j < n; j++ {
			v := gii + gram.At(j, j) - 2*gram.At(i, j)
			if v < 0 {
				v = 0
			}
			d.Set(i, j, v)
		}
	}
	return d
}

// hbeta fills p with the conditional probabilities induced over one row of
// squared distances by the Gaussian precision beta, and returns the Shannon
// entropy of that distribution. A vanished partition sum is replaced by a
// tiny constant, so the result is always finite (if imprecise) rather than
// NaN.
func hbeta(dist []float64, beta float64, p []float64) float64 {
	var sumP, sumDP float64
	for i, d := range dist {
		e := math.Exp(-beta * d)
		p[i] = e
		sumP += e
		sumDP += d * e
	}

	if sumP < minPartitionSum {
		sumP = minPartitionSum
	}

	h := math.Log(sumP) + beta*sumDP/sumP
	for i := range p {
		p[i] /= sumP
	}
	return h
}

// calibrateRow binary-searches a Gaussian precision for one distance row so
// that the entropy of the induced distribution matches logPerp, and returns
// the probability row at the final precision. The search starts at beta = 1
// and doubles (or halves) until a bracket exists, then bisects.
//
// Non-convergence within maxSteps is not an error: the best-effort row is
// returned silently. A step that produces NaN or Inf terminates the search
// early. Steps whose partition sum underflowed carry no probability mass;
// the search continues through them (the guarded entropy still steers beta
// the right way) but the returned row is the last one with real mass.
func calibrateRow(dist []float64, logPerp, tol float64, maxSteps int) []float64 {
	p := make([]float64, len(dist))
	trial := make([]float64, len(dist))
	best := make([]float64, len(dist))
	hasBest := false

	beta := 1.0
	betaMin := math.Inf(-1)
	betaMax := math.Inf(1)

	h := hbeta(dist, beta, p)
	if hasMass(p) {
		copy(best, p)
		hasBest = true
	}
	hdiff := h - logPerp

	for step := 0; step < maxSteps && math.Abs(hdiff) > tol; step++ {
		if hdiff > 0 {
			// too spread out: tighten the kernel
			betaMin = beta
			if math.IsInf(betaMax, 1) {
				beta *= 2
			} else {
				beta = (beta + betaMax) / 2
			}
		} else {
			betaMax = beta
			if math.IsInf(betaMin, -1) {
				beta /= 2
			} else {
				beta = (beta + betaMin) / 2
			}
		}

		h = hbeta(dist, beta, trial)
		if !rowFinite(h, trial) {
			break
		}
		copy(p, trial)
		if hasMass(p) {
			copy(best, p)
			hasBest = true
		}
		hdiff = h - logPerp
	}

	if hasBest {
		return best
	}
	return p
}

func rowFinite(h float64, p []float64) bool {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return false
	}
	for _, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// hasMass reports whether the row carries usable probability mass: a proper
// row sums to 1, while a row normalized through the underflow guard sums to
// (nearly) zero.
func hasMass(p []float64) bool {
	var sum float64
	for _, v := range p {
		sum += v
	}
	return sum > 0.5
}
