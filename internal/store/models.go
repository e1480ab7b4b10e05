package store

import "time"

// Subject is a course-level grouping of knowledge points and exercises.
type Subject struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string
	CreatedAt   time.Time
}

// KnowledgePoint is one node in a subject's knowledge tree. ParentID is nil
// for root nodes.
type KnowledgePoint struct {
	ID        int64  `gorm:"primaryKey"`
	SubjectID int64  `gorm:"index;not null"`
	Name      string `gorm:"not null"`
	ParentID  *int64 `gorm:"index"`
	CreatedAt time.Time
}

// Exercise is one assessable item within a subject.
type Exercise struct {
	ID           int64 `gorm:"primaryKey"`
	SubjectID    int64 `gorm:"index;not null"`
	Title        string
	QuestionType string
	CreatedAt    time.Time
}

// QMatrixEntry links an exercise to a knowledge point it assesses, with a
// weight. An (exercise, knowledge point) pair appears at most once.
type QMatrixEntry struct {
	ID               int64   `gorm:"primaryKey"`
	ExerciseID       int64   `gorm:"uniqueIndex:uq_q_entry;not null"`
	KnowledgePointID int64   `gorm:"uniqueIndex:uq_q_entry;not null"`
	Weight           float64 `gorm:"default:1"`
}

// ResponseLog is one raw answer record. IsCorrect is nil until the answer is
// graded; ungraded rows never contribute diagnostic evidence.
type ResponseLog struct {
	ID            int64 `gorm:"primaryKey"`
	StudentID     int64 `gorm:"index;not null"`
	ExerciseID    int64 `gorm:"index;not null"`
	IsCorrect     *bool
	TimeSpentSecs int
	SubmittedAt   time.Time `gorm:"autoCreateTime"`
}

// DiagnosisModel names one configured diagnostic model. Mastery records are
// scoped to a model so different estimators never overwrite each other.
type DiagnosisModel struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	CreatedAt   time.Time
}

// MasteryRecord is the persisted mastery estimate for one
// (student, knowledge point, model) triple. The triple is unique; both the
// batch and incremental writers upsert against it.
type MasteryRecord struct {
	ID               int64 `gorm:"primaryKey"`
	StudentID        int64 `gorm:"uniqueIndex:uq_mastery_key;not null"`
	KnowledgePointID int64 `gorm:"uniqueIndex:uq_mastery_key;not null"`
	ModelID          int64 `gorm:"uniqueIndex:uq_mastery_key;not null"`
	MasteryLevel     float64
	PracticeCount    int
	CorrectCount     int
	LastPracticed    time.Time
}
