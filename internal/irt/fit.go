package irt

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/Chen-yuping/Education-system/internal/dataset"
)

// MinObservedCells is the evidence threshold below which a fit is refused.
// Optimizing over a near-empty matrix produces degenerate parameters.
const MinObservedCells = 10

// Options control the fit.
type Options struct {
	Variant Variant
	// MaxIter caps the optimizer's major iterations so a fit can never run
	// unbounded.
	MaxIter int
	// Tol is the absolute loss-change convergence tolerance.
	Tol float64
}

// DefaultOptions returns the fitting defaults for a variant.
func DefaultOptions(v Variant) Options {
	return Options{Variant: v, MaxIter: 50, Tol: 1e-3}
}

// observation is one non-missing cell of the response matrix.
type observation struct {
	student int
	item    int
	y       float64
}

// layout describes how the flat parameter vector is packed:
// [theta... | a... | b... | c...] with a and c omitted when fixed.
type layout struct {
	variant   Variant
	nStudents int
	nItems    int
}

func (l layout) size() int {
	switch l.variant {
	case OnePL:
		return l.nStudents + l.nItems
	case ThreePL:
		return l.nStudents + 3*l.nItems
	default:
		return l.nStudents + 2*l.nItems
	}
}

// aIndex returns the flat index of item j's discrimination, or -1 if fixed.
func (l layout) aIndex(j int) int {
	if l.variant == OnePL {
		return -1
	}
	return l.nStudents + j
}

func (l layout) bIndex(j int) int {
	if l.variant == OnePL {
		return l.nStudents + j
	}
	return l.nStudents + l.nItems + j
}

// cIndex returns the flat index of item j's guessing parameter, or -1 if
// fixed.
func (l layout) cIndex(j int) int {
	if l.variant != ThreePL {
		return -1
	}
	return l.nStudents + 2*l.nItems + j
}

// unpack splits a flat parameter vector into per-component slices, filling
// in the fixed values for the simpler variants.
func (l layout) unpack(x []float64) (theta, a, b, c []float64) {
	theta = x[:l.nStudents]
	a = make([]float64, l.nItems)
	c = make([]float64, l.nItems)
	switch l.variant {
	case OnePL:
		for j := range a {
			a[j] = 1.0
		}
		b = x[l.nStudents : l.nStudents+l.nItems]
	case ThreePL:
		copy(a, x[l.nStudents:l.nStudents+l.nItems])
		b = x[l.nStudents+l.nItems : l.nStudents+2*l.nItems]
		copy(c, x[l.nStudents+2*l.nItems:])
	default:
		copy(a, x[l.nStudents:l.nStudents+l.nItems])
		b = x[l.nStudents+l.nItems : l.nStudents+2*l.nItems]
	}
	return theta, a, b, c
}

func (l layout) bounds() *boxBounds {
	n := l.size()
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i := 0; i < l.nStudents; i++ {
		lo[i], hi[i] = thetaMin, thetaMax
	}
	for j := 0; j < l.nItems; j++ {
		if idx := l.aIndex(j); idx >= 0 {
			lo[idx], hi[idx] = discMin, discMax
		}
		lo[l.bIndex(j)], hi[l.bIndex(j)] = diffMin, diffMax
		if idx := l.cIndex(j); idx >= 0 {
			lo[idx], hi[idx] = guessMin, guessMax
		}
	}
	return &boxBounds{lo: lo, hi: hi}
}

// initial returns the uninformative starting point: theta=0, a=1, b=0,
// c=0.2.
func (l layout) initial() []float64 {
	x := make([]float64, l.size())
	for j := 0; j < l.nItems; j++ {
		if idx := l.aIndex(j); idx >= 0 {
			x[idx] = 1.0
		}
		if idx := l.cIndex(j); idx >= 0 {
			x[idx] = 0.2
		}
	}
	return x
}

// Fit runs joint maximum-likelihood estimation of all student abilities and
// item parameters over the observed cells of the response matrix. It is a
// pure function: the returned FittedModel is immutable and the dataset is
// not modified.
//
// The optimization is local; with a fixed solver the result is deterministic
// for identical inputs, but no global optimality is guaranteed.
func Fit(ctx context.Context, ds *dataset.Dataset, opts Options) (*FittedModel, error) {
	if opts.MaxIter <= 0 {
		opts.MaxIter = 50
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-3
	}
	if opts.Variant == 0 {
		opts.Variant = TwoPL
	}

	obs := collectObservations(ds)
	if len(obs) < MinObservedCells {
		return nil, &InsufficientDataError{Observed: len(obs), Required: MinObservedCells}
	}

	l := layout{variant: opts.Variant, nStudents: len(ds.StudentIDs), nItems: len(ds.ExerciseIDs)}
	box := l.bounds()
	u0 := box.internal(l.initial())

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			x := box.external(u)
			return negLogLikelihood(l, x, obs)
		},
		Grad: func(grad, u []float64) {
			x := box.external(u)
			gradNLL(l, x, obs, grad)
			box.chain(grad, u)
		},
	}

	settings := &optimize.Settings{
		MajorIterations: opts.MaxIter,
		Converger: &contextConverger{
			ctx: ctx,
			inner: &optimize.FunctionConverge{
				Absolute:   opts.Tol,
				Iterations: 5,
			},
		},
	}

	result, err := minimize(problem, u0, settings)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("IRT fit canceled: %w", ctxErr)
	}
	if result == nil {
		return nil, &NumericalError{Err: err}
	}

	x := box.external(result.X)
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &NumericalError{Err: fmt.Errorf("non-finite parameter in solution")}
		}
	}

	theta, a, b, c := l.unpack(x)
	m := &FittedModel{
		Variant:    opts.Variant,
		StudentIDs: ds.StudentIDs,
		ItemIDs:    ds.ExerciseIDs,
		Theta:      append([]float64(nil), theta...),
		A:          a,
		B:          append([]float64(nil), b...),
		C:          c,
		Loss:       result.F,
		Iterations: result.Stats.MajorIterations,
	}
	return m, nil
}

// minimize wraps the optimizer call so an internal panic (singular step,
// bad line search state) surfaces as an error instead of crashing the run.
func minimize(problem optimize.Problem, u0 []float64, settings *optimize.Settings) (result *optimize.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("optimizer panic: %v", r)
		}
	}()
	result, err = optimize.Minimize(problem, u0, settings, &optimize.LBFGS{})
	// Hitting the iteration cap or a stalled line search still leaves a
	// usable local solution in result.X; the caller validates finiteness.
	return result, err
}

// contextConverger terminates the fit when the caller's context is done,
// otherwise delegating to the wrapped convergence test.
type contextConverger struct {
	ctx   context.Context
	inner optimize.Converger
}

func (c *contextConverger) Init(dim int) {
	c.inner.Init(dim)
}

func (c *contextConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return optimize.Failure
	}
	return c.inner.Converged(loc)
}

func collectObservations(ds *dataset.Dataset) []observation {
	if ds.Responses == nil {
		return nil
	}
	rows, cols := ds.Responses.Dims()
	var obs []observation
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := ds.Responses.At(i, j)
			if math.IsNaN(v) {
				continue
			}
			obs = append(obs, observation{student: i, item: j, y: v})
		}
	}
	return obs
}

// negLogLikelihood sums -[y·ln p + (1-y)·ln(1-p)] over observed cells.
func negLogLikelihood(l layout, x []float64, obs []observation) float64 {
	theta, a, b, c := l.unpack(x)
	nll := 0.0
	for _, o := range obs {
		p := Probability(theta[o.student], a[o.item], b[o.item], c[o.item])
		nll -= o.y*math.Log(p) + (1-o.y)*math.Log(1-p)
	}
	return nll
}

// gradNLL writes the analytic gradient of the negative log-likelihood in
// external (bounded) space into grad.
func gradNLL(l layout, x []float64, obs []observation, grad []float64) {
	for i := range grad {
		grad[i] = 0
	}
	theta, a, b, c := l.unpack(x)
	for _, o := range obs {
		th, aj, bj, cj := theta[o.student], a[o.item], b[o.item], c[o.item]
		z := aj * (th - bj)
		s := sigmoid(z)
		p := Probability(th, aj, bj, cj)

		// d(-ll)/dp, with p clipped away from {0,1} so this stays finite.
		dldp := (p - o.y) / (p * (1 - p))
		dpdz := (1 - cj) * s * (1 - s)

		grad[o.student] += dldp * dpdz * aj
		if idx := l.aIndex(o.item); idx >= 0 {
			grad[idx] += dldp * dpdz * (th - bj)
		}
		grad[l.bIndex(o.item)] += dldp * dpdz * (-aj)
		if idx := l.cIndex(o.item); idx >= 0 {
			grad[idx] += dldp * (1 - s)
		}
	}
}
