// Package mastery computes per-knowledge-point mastery estimates from
// Q-matrix-weighted response evidence.
//
// Two deliberately different formulas live here. Aggregate (the batch path)
// smooths low-evidence estimates toward a neutral prior; Updater (the
// per-response path) maintains a plain correct/practice ratio. The
// divergence mirrors the live behavior this module replaces and is kept as
// two named strategies rather than silently unified.
package mastery

import (
	"math"

	"github.com/Chen-yuping/Education-system/internal/dataset"
)

const (
	// WeakThreshold classifies a knowledge point as weak when mastery is
	// strictly below it. Shared by both strategies.
	WeakThreshold = 0.6

	// SaturationWeight is the total evidence weight at which smoothing
	// stops pulling toward the neutral prior.
	SaturationWeight = 5.0

	// NeutralMastery is the prior used when evidence is absent or thin.
	// Absence of practice is not confirmed lack of mastery, so the default
	// is neither 0 nor 1.
	NeutralMastery = 0.5
)

// Evidence accumulates weighted and unweighted response counts for one
// (student, knowledge point) pair.
type Evidence struct {
	TotalWeight   float64
	CorrectWeight float64
	PracticeCount int
	CorrectCount  int
}

// Estimate is the per-student aggregation output.
type Estimate struct {
	// Mastery maps knowledge point ID to the smoothed mastery level. Every
	// knowledge point in the dataset has an entry.
	Mastery map[int64]float64
	// PracticeCounts and CorrectCounts are unweighted response tallies.
	PracticeCounts map[int64]int
	CorrectCounts  map[int64]int
	// AnswerCount is the number of graded responses the student gave.
	AnswerCount int
}

// Smooth applies evidence smoothing: with little evidence the estimate is
// pulled toward the neutral prior, reaching full confidence once
// totalWeight hits SaturationWeight.
func Smooth(baseMastery, totalWeight float64) float64 {
	practiceFactor := math.Min(totalWeight/SaturationWeight, 1.0)
	return baseMastery*practiceFactor + NeutralMastery*(1-practiceFactor)
}

// Aggregate computes the weighted-evidence mastery estimate for one student
// across every knowledge point in the dataset. Only exercises loading on a
// knowledge point with Q-matrix weight > 0 contribute evidence.
func Aggregate(ds *dataset.Dataset, studentID int64) *Estimate {
	responses := ds.ByStudent[studentID]

	evidence := make(map[int64]*Evidence, len(ds.KnowledgeIDs))
	for _, kpID := range ds.KnowledgeIDs {
		evidence[kpID] = &Evidence{}
	}

	for _, r := range responses {
		for kpIdx, kpID := range ds.KnowledgeIDs {
			w := ds.Weight(r.ExerciseIdx, kpIdx)
			if w <= 0 {
				continue
			}
			ev := evidence[kpID]
			ev.TotalWeight += w
			ev.PracticeCount++
			if r.Correct {
				ev.CorrectWeight += w
				ev.CorrectCount++
			}
		}
	}

	est := &Estimate{
		Mastery:        make(map[int64]float64, len(ds.KnowledgeIDs)),
		PracticeCounts: make(map[int64]int, len(ds.KnowledgeIDs)),
		CorrectCounts:  make(map[int64]int, len(ds.KnowledgeIDs)),
		AnswerCount:    len(responses),
	}
	for _, kpID := range ds.KnowledgeIDs {
		ev := evidence[kpID]
		if ev.TotalWeight > 0 {
			est.Mastery[kpID] = Smooth(ev.CorrectWeight/ev.TotalWeight, ev.TotalWeight)
		} else {
			est.Mastery[kpID] = NeutralMastery
		}
		est.PracticeCounts[kpID] = ev.PracticeCount
		est.CorrectCounts[kpID] = ev.CorrectCount
	}
	return est
}

// Overall is the unweighted arithmetic mean of the per-knowledge-point
// mastery values. Practice volume deliberately does not weight the average;
// downstream consumers rely on this exact behavior.
func Overall(mastery map[int64]float64) float64 {
	if len(mastery) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range mastery {
		sum += m
	}
	return sum / float64(len(mastery))
}

// IsWeak reports whether a mastery level classifies as weak. The threshold
// is strict: exactly WeakThreshold is not weak.
func IsWeak(level float64) bool {
	return level < WeakThreshold
}

// WeakPoint describes one under-mastered knowledge point.
type WeakPoint struct {
	KnowledgePointID int64
	Name             string
	Mastery          float64
	PracticeCount    int
	CorrectCount     int
}

// WeakPoints lists the knowledge points whose mastery falls below the weak
// threshold, in dataset (ID) order.
func WeakPoints(ds *dataset.Dataset, est *Estimate) []WeakPoint {
	var weak []WeakPoint
	for _, kpID := range ds.KnowledgeIDs {
		level := est.Mastery[kpID]
		if !IsWeak(level) {
			continue
		}
		weak = append(weak, WeakPoint{
			KnowledgePointID: kpID,
			Name:             ds.KnowledgeNames[kpID],
			Mastery:          level,
			PracticeCount:    est.PracticeCounts[kpID],
			CorrectCount:     est.CorrectCounts[kpID],
		})
	}
	return weak
}

// Band buckets a mastery level for reporting.
func Band(level float64, practiceCount int) string {
	switch {
	case practiceCount == 0:
		return "unpracticed"
	case level >= 0.8:
		return "excellent"
	case level >= 0.6:
		return "good"
	case level >= 0.4:
		return "medium"
	default:
		return "weak"
	}
}
