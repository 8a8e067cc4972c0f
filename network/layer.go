package network

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// dense is one fully-connected layer, optionally followed by a ReLU.
type dense struct {
	w    *mat.Dense // nIn x nOut
	b    []float64
	relu bool

	// stashed by forward for the following backward pass
	in  mat.Matrix
	pre *mat.Dense

	// gradients of the last backward pass, parallel to w and b
	gw *mat.Dense
	gb []float64
}

func newDense(nIn, nOut int, relu bool, rng *rand.Rand) *dense {
	// variance scaling on the fan-in, suited to ReLU units
	sd := math.Sqrt(2 / float64(nIn))

	w := mat.NewDense(nIn, nOut, nil)
	for i := 0; i < nIn; i++ {
		for j := 0; j < nOut; j++ {
			w.Set(i, j, rng.NormFloat64()*sd)
		}
	}

	return &dense{
		w:    w,
		b:    make([]float64, nOut),
		relu: relu,
		gw:   mat.NewDense(nIn, nOut, nil),
		gb:   make([]float64, nOut),
	}
}

// forward computes x*w + b (and the ReLU when configured), keeping the
// pre-activation and input around for backward.
func (l *dense) forward(x mat.Matrix) *mat.Dense {
	rows, _ := x.Dims()
	_, nOut := l.w.Dims()

	pre := mat.NewDense(rows, nOut, nil)
	pre.Mul(x, l.w)
	for i := 0; i < rows; i++ {
		row := pre.RawRowView(i)
		for j := range row {
			row[j] += l.b[j]
		}
	}

	l.in = x
	l.pre = pre

	if !l.relu {
		return pre
	}

	out := mat.NewDense(rows, nOut, nil)
	for i := 0; i < rows; i++ {
		src := pre.RawRowView(i)
		dst := out.RawRowView(i)
		for j, v := range src {
			if v > 0 {
				dst[j] = v
			}
		}
	}
	return out
}

// backward takes the loss gradient with respect to this layer's output,
// fills gw/gb, and returns the gradient with respect to the layer's input.
// Must follow a forward call on the same batch.
func (l *dense) backward(gOut *mat.Dense) *mat.Dense {
	rows, nOut := gOut.Dims()

	gPre := gOut
	if l.relu {
		gPre = mat.NewDense(rows, nOut, nil)
		for i := 0; i < rows; i++ {
			src := gOut.RawRowView(i)
			dst := gPre.RawRowView(i)
			for j, v := range src {
				if l.pre.At(i, j) > 0 {
					dst[j] = v
				}
			}
		}
	}

	l.gw.Mul(l.in.T(), gPre)

	for j := range l.gb {
		l.gb[j] = 0
	}
	for i := 0; i < rows; i++ {
		row := gPre.RawRowView(i)
		for j, v := range row {
			l.gb[j] += v
		}
	}

	nIn, _ := l.w.Dims()
	gIn := mat.NewDense(rows, nIn, nil)
	gIn.Mul(gPre, l.w.T())
	return gIn
}
