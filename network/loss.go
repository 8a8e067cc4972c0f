package network

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/chunfuchen/Multiscale-Parametric-t-SNE/utils"
)

const (
	// similarityFloor keeps every off-diagonal Q entry away from zero so no
	// gradient term vanishes exactly; the value matches the floor of the
	// input-space similarities.
	similarityFloor = 1e-12

	// logGuard keeps the loss's log ratio defined when entries approach zero.
	logGuard = 1e-15
)

// pairwiseSq returns the squared Euclidean distances between the rows of y
// via |y_i|^2 + |y_j|^2 - 2*y_i.y_j, clamped at zero.
func pairwiseSq(y *mat.Dense) *mat.Dense {
	n, _ := y.Dims()

	var gram mat.Dense
	gram.Mul(y, y.T())

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

// studentT converts embedding coordinates into the normalized heavy-tailed
// similarity matrix: q_ij proportional to (1 + d_ij/alpha)^(-(alpha+1)/2),
// zero diagonal, global sum 1 before flooring.
func studentT(y *mat.Dense, alpha float64) *mat.Dense {
	q, _ := studentTParts(y, alpha)
	return q
}

// studentTParts additionally returns the (1 + d_ij/alpha)^(-1) factors that
// the loss gradient needs.
func studentTParts(y *mat.Dense, alpha float64) (q, inv *mat.Dense) {
	b, _ := y.Dims()
	d := pairwiseSq(y)

	q = mat.NewDense(b, b, nil)
	inv = mat.NewDense(b, b, nil)
	power := -(alpha + 1) / 2

	var sum float64
	for i := 0; i < b; i++ {
		for j := 0; j < b; j++ {
			if i == j {
				continue
			}
			base := 1 + d.At(i, j)/alpha
			w := math.Pow(base, power)
			q.Set(i, j, w)
			inv.Set(i, j, 1/base)
			sum += w
		}
	}
	if sum < 1e-300 {
		sum = 1e-300
	}

	for i := 0; i < b; i++ {
		for j := 0; j < b; j++ {
			if i == j {
				continue
			}
			v := q.At(i, j) / sum
			if v < similarityFloor {
				v = similarityFloor
			}
			q.Set(i, j, v)
		}
	}
	return q, inv
}

// klLoss returns the KL divergence sum_ij p_ij*log((p_ij+eps)/(q_ij+eps))
// between the target similarities p and the Student-t similarities of the
// embedding y, together with its gradient with respect to y:
//
//	dC/dy_i = (2(alpha+1)/alpha) * sum_j (p_ij - q_ij) (1 + d_ij/alpha)^(-1) (y_i - y_j)
//
// Rows of the gradient are independent, so they are computed on the worker
// pool.
func klLoss(p mat.Matrix, y *mat.Dense, alpha float64) (float64, *mat.Dense) {
	b, c := y.Dims()
	q, inv := studentTParts(y, alpha)

	var loss float64
	for i := 0; i < b; i++ {
		for j := 0; j < b; j++ {
			if i == j {
				continue
			}
			pij := p.At(i, j)
			loss += pij * math.Log((pij+logGuard)/(q.At(i, j)+logGuard))
		}
	}

	g := mat.NewDense(b, c, nil)
	factor := 2 * (alpha + 1) / alpha

	gradRow := func(i int) {
		yi := y.RawRowView(i)
		gi := g.RawRowView(i)
		for j := 0; j < b; j++ {
			if j == i {
				continue
			}
			m := factor * (p.At(i, j) - q.At(i, j)) * inv.At(i, j)
			yj := y.RawRowView(j)
			for k := 0; k < c; k++ {
				gi[k] += m * (yi[k] - yj[k])
			}
		}
	}

	opsPerThread, threadsPerCPU := 1, 1
	utils.MultiThread(0, b, gradRow, opsPerThread, threadsPerCPU)

	return loss, g
}
