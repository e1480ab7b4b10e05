package dataset

import (
	"context"
	"time"
)

// KnowledgePointRow is one knowledge point as supplied by the persistence
// collaborator.
type KnowledgePointRow struct {
	ID       int64
	Name     string
	ParentID *int64
}

// ExerciseRow is one exercise in the subject scope.
type ExerciseRow struct {
	ID           int64
	QuestionType string
}

// QEntryRow is one (exercise, knowledge point, weight) incidence.
type QEntryRow struct {
	ExerciseID       int64
	KnowledgePointID int64
	Weight           float64
}

// ResponseRow is one raw answer record. Correct is nil when the answer has
// not been graded yet.
type ResponseRow struct {
	StudentID     int64
	ExerciseID    int64
	Correct       *bool
	TimeSpentSecs int
	SubmittedAt   time.Time
}

// Source supplies the raw rows the builder assembles into a Dataset. The
// store package provides the production implementation; tests use in-memory
// fakes.
type Source interface {
	SubjectExists(ctx context.Context, subjectID int64) (bool, error)
	KnowledgePoints(ctx context.Context, subjectID int64) ([]KnowledgePointRow, error)
	Exercises(ctx context.Context, subjectID int64) ([]ExerciseRow, error)
	QEntries(ctx context.Context, subjectID int64) ([]QEntryRow, error)
	Responses(ctx context.Context, subjectID int64) ([]ResponseRow, error)
}
