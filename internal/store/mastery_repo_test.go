package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureModelIdempotent(t *testing.T) {
	st := openTestStore(t)
	repo := st.Mastery()
	ctx := context.Background()

	first, err := repo.EnsureModel(ctx, "simple", "weighted accuracy")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := repo.EnsureModel(ctx, "simple", "different description")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	// The existing row wins; the new description is not applied.
	assert.Equal(t, "weighted accuracy", second.Description)

	other, err := repo.EnsureModel(ctx, "irt_2pl", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestApplyResponseCreatesThenIncrements(t *testing.T) {
	st := openTestStore(t)
	repo := st.Mastery()
	ctx := context.Background()

	model, err := repo.EnsureModel(ctx, "simple", "")
	require.NoError(t, err)

	// First response creates the record with a 1/1 ratio.
	require.NoError(t, repo.ApplyResponse(ctx, 7, 10, model.ID, true, time.Now()))
	rec, err := repo.Get(ctx, 7, 10, model.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.PracticeCount)
	assert.Equal(t, 1, rec.CorrectCount)
	assert.Equal(t, 1.0, rec.MasteryLevel)

	// A wrong answer moves the plain ratio to 1/2.
	require.NoError(t, repo.ApplyResponse(ctx, 7, 10, model.ID, false, time.Now()))
	rec, err = repo.Get(ctx, 7, 10, model.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.PracticeCount)
	assert.Equal(t, 1, rec.CorrectCount)
	assert.InDelta(t, 0.5, rec.MasteryLevel, 1e-9)

	// Records are scoped per model: another model sees nothing.
	other, err := repo.EnsureModel(ctx, "other", "")
	require.NoError(t, err)
	missing, err := repo.Get(ctx, 7, 10, other.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertBatchOverwritesWithoutDuplicates(t *testing.T) {
	st := openTestStore(t)
	repo := st.Mastery()
	ctx := context.Background()

	model, err := repo.EnsureModel(ctx, "simple", "")
	require.NoError(t, err)

	now := time.Now()
	var rows []MasteryRecord
	for student := int64(1); student <= 3; student++ {
		for kp := int64(10); kp <= 30; kp += 10 {
			rows = append(rows, MasteryRecord{
				StudentID:        student,
				KnowledgePointID: kp,
				ModelID:          model.ID,
				MasteryLevel:     0.5,
				PracticeCount:    1,
				LastPracticed:    now,
			})
		}
	}

	// Batch size 2 forces multiple chunks.
	require.NoError(t, repo.UpsertBatch(ctx, rows, 2))

	// Second pass with new levels must update in place, not duplicate.
	for i := range rows {
		rows[i].MasteryLevel = 0.9
		rows[i].PracticeCount = 4
	}
	require.NoError(t, repo.UpsertBatch(ctx, rows, 2))

	var n int64
	require.NoError(t, st.DB().Model(&MasteryRecord{}).Count(&n).Error)
	assert.Equal(t, int64(9), n)

	rec, err := repo.Get(ctx, 2, 20, model.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 0.9, rec.MasteryLevel)
	assert.Equal(t, 4, rec.PracticeCount)
}

func TestUpsertBatchEmptyIsNoop(t *testing.T) {
	st := openTestStore(t)
	assert.NoError(t, st.Mastery().UpsertBatch(context.Background(), nil, 50))
}

func TestExerciseLoadingsDefaultsWeight(t *testing.T) {
	st := openTestStore(t)
	db := st.DB()

	subject := Subject{Name: "Algebra"}
	require.NoError(t, db.Create(&subject).Error)
	ex := Exercise{SubjectID: subject.ID, Title: "p1"}
	require.NoError(t, db.Create(&ex).Error)
	entries := []QMatrixEntry{
		{ExerciseID: ex.ID, KnowledgePointID: 10, Weight: 0.5},
		{ExerciseID: ex.ID, KnowledgePointID: 20},
	}
	require.NoError(t, db.Create(&entries).Error)

	loadings, err := st.Mastery().ExerciseLoadings(context.Background(), ex.ID)
	require.NoError(t, err)
	require.Len(t, loadings, 2)
	assert.Equal(t, Loading{KnowledgePointID: 10, Weight: 0.5}, loadings[0])
	// Missing weight reads back as the default of 1.0.
	assert.Equal(t, Loading{KnowledgePointID: 20, Weight: 1.0}, loadings[1])
}

func TestListByStudentSubjectScopes(t *testing.T) {
	st := openTestStore(t)
	db := st.DB()
	ctx := context.Background()

	subjects := []Subject{{Name: "Algebra"}, {Name: "Geometry"}}
	require.NoError(t, db.Create(&subjects).Error)
	kps := []KnowledgePoint{
		{SubjectID: subjects[0].ID, Name: "integers"},
		{SubjectID: subjects[1].ID, Name: "angles"},
	}
	require.NoError(t, db.Create(&kps).Error)

	model, err := st.Mastery().EnsureModel(ctx, "simple", "")
	require.NoError(t, err)

	now := time.Now()
	rows := []MasteryRecord{
		{StudentID: 7, KnowledgePointID: kps[0].ID, ModelID: model.ID, MasteryLevel: 0.8, LastPracticed: now},
		{StudentID: 7, KnowledgePointID: kps[1].ID, ModelID: model.ID, MasteryLevel: 0.3, LastPracticed: now},
	}
	require.NoError(t, st.Mastery().UpsertBatch(ctx, rows, 50))

	got, err := st.Mastery().ListByStudentSubject(ctx, 7, subjects[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, kps[0].ID, got[0].KnowledgePointID)
}
