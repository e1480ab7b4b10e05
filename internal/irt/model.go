// Package irt fits logistic item response theory models (1PL/2PL/3PL) to a
// sparse response matrix by joint maximum-likelihood estimation, and projects
// the fitted parameters through the Q-matrix into per-knowledge-point mastery
// estimates.
package irt

import (
	"fmt"
	"math"

	"github.com/Chen-yuping/Education-system/internal/dataset"
)

// Variant selects the logistic model family.
type Variant int

const (
	// OnePL fixes discrimination a=1 and guessing c=0.
	OnePL Variant = iota + 1
	// TwoPL fits discrimination per item, guessing fixed at 0.
	TwoPL
	// ThreePL fits discrimination, difficulty and guessing per item.
	ThreePL
)

func (v Variant) String() string {
	switch v {
	case OnePL:
		return "1PL"
	case ThreePL:
		return "3PL"
	default:
		return "2PL"
	}
}

// Parameter bounds. These are constraints of the optimizer itself, applied
// through a change of variables, not a clamp on the result.
const (
	thetaMin = -4.0
	thetaMax = 4.0
	discMin  = 0.1
	discMax  = 3.0
	diffMin  = -4.0
	diffMax  = 4.0
	guessMin = 0.0
	guessMax = 0.5
)

// probEps keeps predicted probabilities strictly inside (0,1) so the
// log-likelihood stays finite.
const probEps = 1e-10

// ItemParams holds the fitted parameters for one exercise.
type ItemParams struct {
	Discrimination float64
	Difficulty     float64
	Guessing       float64
}

// FittedModel is the immutable result of one fit. It carries everything
// needed to predict and diagnose, so concurrent diagnosis runs over
// different fits are trivially safe.
type FittedModel struct {
	Variant    Variant
	StudentIDs []int64
	ItemIDs    []int64

	// Theta is the raw latent ability per student, index-aligned with
	// StudentIDs.
	Theta []float64
	// A, B, C are per-item discrimination, difficulty and guessing,
	// index-aligned with ItemIDs.
	A []float64
	B []float64
	C []float64

	Loss       float64
	Iterations int
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Probability is the 3PL response model: c + (1-c)·sigmoid(a·(θ-b)),
// clipped strictly inside (0,1).
func Probability(theta, a, b, c float64) float64 {
	p := c + (1-c)*sigmoid(a*(theta-b))
	if p < probEps {
		return probEps
	}
	if p > 1-probEps {
		return 1 - probEps
	}
	return p
}

// NormalizedAbility maps a student's raw ability onto [0,1] via the logistic
// transform.
func (m *FittedModel) NormalizedAbility(studentIdx int) float64 {
	return sigmoid(m.Theta[studentIdx])
}

// ItemParameters returns the per-exercise fitted parameters keyed by
// exercise ID.
func (m *FittedModel) ItemParameters() map[int64]ItemParams {
	params := make(map[int64]ItemParams, len(m.ItemIDs))
	for i, id := range m.ItemIDs {
		params[id] = ItemParams{
			Discrimination: m.A[i],
			Difficulty:     m.B[i],
			Guessing:       m.C[i],
		}
	}
	return params
}

// Diagnose computes per-knowledge-point mastery for one student: the mean
// predicted-correct probability over the items loading on each knowledge
// point, evaluated at the student's fitted ability. Knowledge points with no
// loading items fall back to the normalized ability rather than zero.
func (m *FittedModel) Diagnose(ds *dataset.Dataset, studentID int64) (map[int64]float64, error) {
	sIdx, ok := ds.StudentIndex(studentID)
	if !ok {
		return nil, fmt.Errorf("student %d not in fitted dataset", studentID)
	}
	theta := m.Theta[sIdx]
	fallback := sigmoid(theta)

	mastery := make(map[int64]float64, len(ds.KnowledgeIDs))
	for kpIdx, kpID := range ds.KnowledgeIDs {
		sum := 0.0
		n := 0
		for exIdx := range ds.ExerciseIDs {
			if ds.Weight(exIdx, kpIdx) <= 0 {
				continue
			}
			sum += Probability(theta, m.A[exIdx], m.B[exIdx], m.C[exIdx])
			n++
		}
		if n > 0 {
			mastery[kpID] = sum / float64(n)
		} else {
			mastery[kpID] = fallback
		}
	}
	return mastery, nil
}
