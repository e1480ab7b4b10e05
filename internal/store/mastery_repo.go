package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Loading is one knowledge point an exercise loads on, with its Q-matrix
// weight.
type Loading struct {
	KnowledgePointID int64
	Weight           float64
}

// MasteryRepo persists per (student, knowledge point, model) mastery
// estimates. The key triple is unique; all writes are upserts.
type MasteryRepo interface {
	// EnsureModel returns the named diagnostic model, creating it if needed.
	EnsureModel(ctx context.Context, name, description string) (*DiagnosisModel, error)

	// UpsertBatch writes records in bounded chunks, each in its own
	// transaction, sorted by key so concurrent batch writers take row locks
	// in a stable order. A failed chunk does not roll back earlier chunks.
	UpsertBatch(ctx context.Context, records []MasteryRecord, batchSize int) error

	// ExerciseLoadings returns the knowledge points the exercise loads on.
	ExerciseLoadings(ctx context.Context, exerciseID int64) ([]Loading, error)

	// ApplyResponse folds one graded response into the mastery record for
	// (student, knowledge point, model). The counter update is a single
	// UPDATE statement, so two near-simultaneous responses cannot lose an
	// increment.
	ApplyResponse(ctx context.Context, studentID, knowledgePointID, modelID int64, correct bool, at time.Time) error

	// ListByStudentSubject returns a student's mastery records within a
	// subject, most recently practiced first.
	ListByStudentSubject(ctx context.Context, studentID, subjectID int64) ([]MasteryRecord, error)

	Get(ctx context.Context, studentID, knowledgePointID, modelID int64) (*MasteryRecord, error)
}

type masteryRepo struct {
	db *gorm.DB
}

var masteryKey = []clause.Column{
	{Name: "student_id"},
	{Name: "knowledge_point_id"},
	{Name: "model_id"},
}

func (r *masteryRepo) EnsureModel(ctx context.Context, name, description string) (*DiagnosisModel, error) {
	m := DiagnosisModel{Name: name, Description: description}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&m).Error
	if err != nil {
		return nil, fmt.Errorf("ensure model %q: %w", name, err)
	}
	// DoNothing leaves m.ID zero when the row already existed.
	if m.ID == 0 {
		if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
			return nil, fmt.Errorf("load model %q: %w", name, err)
		}
	}
	return &m, nil
}

func (r *masteryRepo) UpsertBatch(ctx context.Context, records []MasteryRecord, batchSize int) error {
	if len(records) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	sorted := make([]MasteryRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StudentID != sorted[j].StudentID {
			return sorted[i].StudentID < sorted[j].StudentID
		}
		return sorted[i].KnowledgePointID < sorted[j].KnowledgePointID
	})

	for start := 0; start < len(sorted); start += batchSize {
		end := start + batchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		chunk := sorted[start:end]
		if err := r.upsertChunk(ctx, chunk); err != nil {
			// One retry per chunk: transient lock contention with the
			// incremental updater is expected.
			if err = r.upsertChunk(ctx, chunk); err != nil {
				return fmt.Errorf("upsert mastery chunk [%d:%d]: %w", start, end, err)
			}
		}
	}
	return nil
}

func (r *masteryRepo) upsertChunk(ctx context.Context, chunk []MasteryRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Clauses(clause.OnConflict{
				Columns: masteryKey,
				DoUpdates: clause.AssignmentColumns([]string{
					"mastery_level", "practice_count", "correct_count", "last_practiced",
				}),
			}).
			Create(&chunk).Error
	})
}

func (r *masteryRepo) ExerciseLoadings(ctx context.Context, exerciseID int64) ([]Loading, error) {
	var entries []QMatrixEntry
	err := r.db.WithContext(ctx).
		Where("exercise_id = ?", exerciseID).
		Order("knowledge_point_id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load exercise %d loadings: %w", exerciseID, err)
	}
	loadings := make([]Loading, 0, len(entries))
	for _, e := range entries {
		w := e.Weight
		if w <= 0 {
			w = 1.0
		}
		loadings = append(loadings, Loading{KnowledgePointID: e.KnowledgePointID, Weight: w})
	}
	return loadings, nil
}

func (r *masteryRepo) ApplyResponse(ctx context.Context, studentID, knowledgePointID, modelID int64, correct bool, at time.Time) error {
	// Make sure the row exists; the unique key resolves creation races.
	seed := MasteryRecord{
		StudentID:        studentID,
		KnowledgePointID: knowledgePointID,
		ModelID:          modelID,
		LastPracticed:    at,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: masteryKey, DoNothing: true}).
		Create(&seed).Error
	if err != nil {
		return fmt.Errorf("seed mastery record: %w", err)
	}

	inc := 0
	if correct {
		inc = 1
	}
	// Single atomic read-modify-write: all right-hand sides see the
	// pre-update row, including the recomputed plain-ratio mastery.
	err = r.db.WithContext(ctx).
		Model(&MasteryRecord{}).
		Where("student_id = ? AND knowledge_point_id = ? AND model_id = ?",
			studentID, knowledgePointID, modelID).
		Updates(map[string]interface{}{
			"practice_count": gorm.Expr("practice_count + 1"),
			"correct_count":  gorm.Expr("correct_count + ?", inc),
			"mastery_level":  gorm.Expr("CAST(correct_count + ? AS REAL) / (practice_count + 1)", inc),
			"last_practiced": at,
		}).Error
	if err != nil {
		return fmt.Errorf("apply response: %w", err)
	}
	return nil
}

func (r *masteryRepo) ListByStudentSubject(ctx context.Context, studentID, subjectID int64) ([]MasteryRecord, error) {
	var records []MasteryRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN knowledge_points ON knowledge_points.id = mastery_records.knowledge_point_id").
		Where("mastery_records.student_id = ? AND knowledge_points.subject_id = ?", studentID, subjectID).
		Order("mastery_records.last_practiced DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list mastery for student %d: %w", studentID, err)
	}
	return records, nil
}

func (r *masteryRepo) Get(ctx context.Context, studentID, knowledgePointID, modelID int64) (*MasteryRecord, error) {
	var rec MasteryRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND knowledge_point_id = ? AND model_id = ?",
			studentID, knowledgePointID, modelID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mastery record: %w", err)
	}
	return &rec, nil
}
