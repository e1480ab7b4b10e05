package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Chen-yuping/Education-system/internal/dataset"
)

// SubjectRepo supplies subject-scoped rows to the dataset builder. It
// implements dataset.Source.
type SubjectRepo interface {
	dataset.Source
	Create(ctx context.Context, subject *Subject) error
	Get(ctx context.Context, id int64) (*Subject, error)
}

type subjectRepo struct {
	db *gorm.DB
}

func (r *subjectRepo) Create(ctx context.Context, subject *Subject) error {
	if err := r.db.WithContext(ctx).Create(subject).Error; err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

func (r *subjectRepo) Get(ctx context.Context, id int64) (*Subject, error) {
	var s Subject
	err := r.db.WithContext(ctx).First(&s, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %d: %w", id, err)
	}
	return &s, nil
}

func (r *subjectRepo) SubjectExists(ctx context.Context, subjectID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Subject{}).Where("id = ?", subjectID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check subject %d: %w", subjectID, err)
	}
	return count > 0, nil
}

func (r *subjectRepo) KnowledgePoints(ctx context.Context, subjectID int64) ([]dataset.KnowledgePointRow, error) {
	var kps []KnowledgePoint
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id").
		Find(&kps).Error
	if err != nil {
		return nil, fmt.Errorf("list knowledge points: %w", err)
	}
	rows := make([]dataset.KnowledgePointRow, 0, len(kps))
	for _, kp := range kps {
		rows = append(rows, dataset.KnowledgePointRow{
			ID:       kp.ID,
			Name:     kp.Name,
			ParentID: kp.ParentID,
		})
	}
	return rows, nil
}

func (r *subjectRepo) Exercises(ctx context.Context, subjectID int64) ([]dataset.ExerciseRow, error) {
	var exs []Exercise
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("id").
		Find(&exs).Error
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	rows := make([]dataset.ExerciseRow, 0, len(exs))
	for _, ex := range exs {
		rows = append(rows, dataset.ExerciseRow{ID: ex.ID, QuestionType: ex.QuestionType})
	}
	return rows, nil
}

func (r *subjectRepo) QEntries(ctx context.Context, subjectID int64) ([]dataset.QEntryRow, error) {
	var entries []QMatrixEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN exercises ON exercises.id = q_matrix_entries.exercise_id").
		Where("exercises.subject_id = ?", subjectID).
		Order("q_matrix_entries.id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list q-matrix entries: %w", err)
	}
	rows := make([]dataset.QEntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, dataset.QEntryRow{
			ExerciseID:       e.ExerciseID,
			KnowledgePointID: e.KnowledgePointID,
			Weight:           e.Weight,
		})
	}
	return rows, nil
}

func (r *subjectRepo) Responses(ctx context.Context, subjectID int64) ([]dataset.ResponseRow, error) {
	var logs []ResponseLog
	err := r.db.WithContext(ctx).
		Joins("JOIN exercises ON exercises.id = response_logs.exercise_id").
		Where("exercises.subject_id = ?", subjectID).
		Order("response_logs.id").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	rows := make([]dataset.ResponseRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, dataset.ResponseRow{
			StudentID:     l.StudentID,
			ExerciseID:    l.ExerciseID,
			Correct:       l.IsCorrect,
			TimeSpentSecs: l.TimeSpentSecs,
			SubmittedAt:   l.SubmittedAt,
		})
	}
	return rows, nil
}
