package irt

import "math"

// boxBounds maps between the optimizer's unconstrained space and the box
// [lo, hi] per coordinate via x = lo + (hi-lo)·sigmoid(u). The optimizer
// never sees a value outside its box, which is what makes this an
// L-BFGS-B equivalent on top of an unconstrained L-BFGS.
type boxBounds struct {
	lo []float64
	hi []float64
}

func (b *boxBounds) external(u []float64) []float64 {
	x := make([]float64, len(u))
	for i := range u {
		x[i] = b.lo[i] + (b.hi[i]-b.lo[i])*sigmoid(u[i])
	}
	return x
}

func (b *boxBounds) internal(x []float64) []float64 {
	u := make([]float64, len(x))
	for i := range x {
		r := (x[i] - b.lo[i]) / (b.hi[i] - b.lo[i])
		// Initial values are interior points; the clamp only guards against
		// callers starting exactly on a bound.
		if r < 1e-6 {
			r = 1e-6
		}
		if r > 1-1e-6 {
			r = 1 - 1e-6
		}
		u[i] = math.Log(r / (1 - r))
	}
	return u
}

// chain multiplies an external-space gradient by dx/du in place, producing
// the internal-space gradient.
func (b *boxBounds) chain(grad, u []float64) {
	for i := range grad {
		s := sigmoid(u[i])
		grad[i] *= (b.hi[i] - b.lo[i]) * s * (1 - s)
	}
}
