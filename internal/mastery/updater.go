package mastery

import (
	"context"
	"fmt"
	"time"

	"github.com/Chen-yuping/Education-system/internal/logger"
	"github.com/Chen-yuping/Education-system/internal/store"
)

// UpdaterStore is the slice of persistence the incremental updater needs.
type UpdaterStore interface {
	ExerciseLoadings(ctx context.Context, exerciseID int64) ([]store.Loading, error)
	ApplyResponse(ctx context.Context, studentID, knowledgePointID, modelID int64, correct bool, at time.Time) error
}

// Updater folds single graded responses into mastery records on the hot
// path, without refitting anything. Its mastery formula is the plain
// correct/practice ratio (see the package comment on why this differs from
// Aggregate).
type Updater struct {
	store   UpdaterStore
	modelID int64
	log     *logger.Logger
}

// NewUpdater creates an updater writing records scoped to the given
// diagnostic model.
func NewUpdater(s UpdaterStore, modelID int64, log *logger.Logger) *Updater {
	return &Updater{store: s, modelID: modelID, log: log.With("component", "mastery-updater")}
}

// RecordResponse updates mastery for every knowledge point the answered
// exercise loads on. Records are created on first evidence; counter updates
// are atomic in the store, so concurrent responses from the same student do
// not lose increments.
func (u *Updater) RecordResponse(ctx context.Context, studentID, exerciseID int64, correct bool) error {
	loadings, err := u.store.ExerciseLoadings(ctx, exerciseID)
	if err != nil {
		return fmt.Errorf("resolve loadings for exercise %d: %w", exerciseID, err)
	}
	if len(loadings) == 0 {
		u.log.Debug("exercise has no knowledge loadings", "exercise_id", exerciseID)
		return nil
	}

	now := time.Now()
	for _, loading := range loadings {
		if loading.Weight <= 0 {
			continue
		}
		err := u.store.ApplyResponse(ctx, studentID, loading.KnowledgePointID, u.modelID, correct, now)
		if err != nil {
			return fmt.Errorf("update mastery for knowledge point %d: %w", loading.KnowledgePointID, err)
		}
	}

	u.log.Debug("applied response",
		"student_id", studentID,
		"exercise_id", exerciseID,
		"correct", correct,
		"knowledge_points", len(loadings),
	)
	return nil
}
