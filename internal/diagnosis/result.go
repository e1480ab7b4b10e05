package diagnosis

import (
	"time"

	"github.com/google/uuid"

	"github.com/Chen-yuping/Education-system/internal/irt"
	"github.com/Chen-yuping/Education-system/internal/mastery"
)

// Status labels whether a run produced usable estimates.
type Status string

const (
	StatusOK Status = "ok"
	// StatusFailed means no usable model could be produced. The Result is
	// still structured and FailureReason says why.
	StatusFailed Status = "failed"
)

// StudentResult is one student's diagnosis.
type StudentResult struct {
	StudentID int64
	// Ability is the logistic-normalized latent ability. Only IRT runs set
	// it; the weighted path has no ability concept.
	Ability        float64
	Mastery        map[int64]float64
	PracticeCounts map[int64]int
	CorrectCounts  map[int64]int
	OverallScore   float64
	WeakPoints     []mastery.WeakPoint
	AnswerCount    int
}

// KnowledgePointInfo describes a knowledge point in the diagnosed subject.
type KnowledgePointInfo struct {
	ID        int64
	Name      string
	SubjectID int64
}

// Result is the unified output shape of a diagnosis run, identical for both
// estimation paths.
type Result struct {
	RunID     uuid.UUID
	SubjectID int64
	Model     ModelSpec

	Status        Status
	FailureReason string

	Students        map[int64]*StudentResult
	KnowledgePoints []KnowledgePointInfo

	// ItemParams holds per-exercise fitted parameters for IRT runs.
	ItemParams map[int64]irt.ItemParams

	TotalStudents     int
	DiagnosedStudents int
	// SkippedRefs counts Q-matrix entries and responses that pointed
	// outside the subject scope and were tolerated.
	SkippedRefs int

	GeneratedAt time.Time
}

// AverageOverallScore is the mean overall score across diagnosed students.
func (r *Result) AverageOverallScore() float64 {
	if len(r.Students) == 0 {
		return 0
	}
	sum := 0.0
	for _, sr := range r.Students {
		sum += sr.OverallScore
	}
	return sum / float64(len(r.Students))
}

// KnowledgeCoverage is the fraction of knowledge points practiced by at
// least one diagnosed student.
func (r *Result) KnowledgeCoverage() float64 {
	if len(r.KnowledgePoints) == 0 {
		return 0
	}
	covered := make(map[int64]bool)
	for _, sr := range r.Students {
		for kpID, n := range sr.PracticeCounts {
			if n > 0 {
				covered[kpID] = true
			}
		}
	}
	return float64(len(covered)) / float64(len(r.KnowledgePoints))
}
