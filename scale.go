package ptsne

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Standardize returns a copy of x with every column rescaled to zero mean
// and unit variance. Constant columns are centered but left unscaled. The
// estimator does not call this itself; it is the usual preprocessing step
// before Fit.
func Standardize(x mat.Matrix) *mat.Dense {
	n, d := x.Dims()
	out := mat.DenseCopyOf(x)

	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, out)
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		for i := 0; i < n; i++ {
			out.Set(i, j, (col[i]-mean)/std)
		}
	}
	return out
}
