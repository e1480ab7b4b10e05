// Package dataset assembles the sparse student×exercise response matrix and
// the exercise×knowledge-point weight matrix (Q-matrix) that the diagnostic
// models consume. Index assignment is deterministic: students, exercises and
// knowledge points are sorted by ID, so rebuilding from unchanged data yields
// bit-identical index mappings.
package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Response is one graded answer, positioned in the exercise index space.
type Response struct {
	ExerciseID    int64
	ExerciseIdx   int
	Correct       bool
	TimeSpentSecs int
}

// Dataset is the point-in-time snapshot a diagnosis run operates on.
// An unobserved cell in the response matrix is NaN, never 0: absence of
// evidence is not evidence of incorrectness.
type Dataset struct {
	SubjectID int64

	StudentIDs   []int64
	ExerciseIDs  []int64
	KnowledgeIDs []int64

	KnowledgeNames   map[int64]string
	KnowledgeParents map[int64]int64

	// Q is exercise×knowledge point; nil when either dimension is empty.
	Q *mat.Dense
	// Responses is student×exercise with NaN for unobserved cells; nil when
	// either dimension is empty.
	Responses *mat.Dense

	// ByStudent holds each student's graded responses in submission order.
	ByStudent map[int64][]Response

	// SkippedRefs counts Q-matrix entries and responses that referenced an
	// exercise or knowledge point outside the subject scope. Referential
	// drift from concurrent edits is tolerated, not fatal.
	SkippedRefs int
	// ExcludedUngraded counts responses dropped because correctness was
	// still null.
	ExcludedUngraded int

	studentIdx   map[int64]int
	exerciseIdx  map[int64]int
	knowledgeIdx map[int64]int
}

// NotFoundError reports a subject that does not exist.
type NotFoundError struct {
	SubjectID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subject %d not found", e.SubjectID)
}

// HasEvidence reports whether at least one student has a graded response.
func (d *Dataset) HasEvidence() bool {
	return len(d.StudentIDs) > 0
}

// ObservedCells counts the non-NaN cells in the response matrix.
func (d *Dataset) ObservedCells() int {
	if d.Responses == nil {
		return 0
	}
	n := 0
	rows, cols := d.Responses.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if !math.IsNaN(d.Responses.At(i, j)) {
				n++
			}
		}
	}
	return n
}

// Weight returns the Q-matrix weight for (exercise index, knowledge index),
// or 0 when the pair is absent.
func (d *Dataset) Weight(exIdx, kpIdx int) float64 {
	if d.Q == nil {
		return 0
	}
	return d.Q.At(exIdx, kpIdx)
}

// StudentIndex returns the matrix row for a student ID.
func (d *Dataset) StudentIndex(id int64) (int, bool) {
	i, ok := d.studentIdx[id]
	return i, ok
}

// ExerciseIndex returns the matrix column for an exercise ID.
func (d *Dataset) ExerciseIndex(id int64) (int, bool) {
	i, ok := d.exerciseIdx[id]
	return i, ok
}

// KnowledgeIndex returns the Q-matrix column for a knowledge point ID.
func (d *Dataset) KnowledgeIndex(id int64) (int, bool) {
	i, ok := d.knowledgeIdx[id]
	return i, ok
}
