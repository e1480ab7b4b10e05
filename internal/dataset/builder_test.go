package dataset

import (
	"context"
	"math"
	"reflect"
	"testing"
)

// fakeSource is an in-memory Source for builder tests.
type fakeSource struct {
	subjects  map[int64]bool
	kps       []KnowledgePointRow
	exercises []ExerciseRow
	qEntries  []QEntryRow
	responses []ResponseRow
}

func (f *fakeSource) SubjectExists(_ context.Context, id int64) (bool, error) {
	return f.subjects[id], nil
}
func (f *fakeSource) KnowledgePoints(_ context.Context, _ int64) ([]KnowledgePointRow, error) {
	return f.kps, nil
}
func (f *fakeSource) Exercises(_ context.Context, _ int64) ([]ExerciseRow, error) {
	return f.exercises, nil
}
func (f *fakeSource) QEntries(_ context.Context, _ int64) ([]QEntryRow, error) {
	return f.qEntries, nil
}
func (f *fakeSource) Responses(_ context.Context, _ int64) ([]ResponseRow, error) {
	return f.responses, nil
}

func boolPtr(b bool) *bool { return &b }

func newFakeSource() *fakeSource {
	return &fakeSource{
		subjects: map[int64]bool{1: true},
		kps: []KnowledgePointRow{
			{ID: 20, Name: "fractions"},
			{ID: 10, Name: "integers"},
		},
		exercises: []ExerciseRow{
			{ID: 200, QuestionType: "single"},
			{ID: 100, QuestionType: "single"},
		},
		qEntries: []QEntryRow{
			{ExerciseID: 100, KnowledgePointID: 10, Weight: 0.5},
			{ExerciseID: 200, KnowledgePointID: 20}, // no explicit weight
		},
		responses: []ResponseRow{
			{StudentID: 2, ExerciseID: 100, Correct: boolPtr(true)},
			{StudentID: 1, ExerciseID: 200, Correct: boolPtr(false)},
		},
	}
}

func TestBuildSubjectNotFound(t *testing.T) {
	src := newFakeSource()
	_, err := Build(context.Background(), src, 99)
	if err == nil {
		t.Fatal("expected error for missing subject")
	}
	nf, ok := err.(*NotFoundError)
	if !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
	if nf.SubjectID != 99 {
		t.Errorf("NotFoundError.SubjectID = %d, want 99", nf.SubjectID)
	}
}

func TestBuildDeterministicIndexing(t *testing.T) {
	src := newFakeSource()
	first, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !reflect.DeepEqual(first.StudentIDs, second.StudentIDs) {
		t.Errorf("student order differs: %v vs %v", first.StudentIDs, second.StudentIDs)
	}
	if !reflect.DeepEqual(first.ExerciseIDs, second.ExerciseIDs) {
		t.Errorf("exercise order differs: %v vs %v", first.ExerciseIDs, second.ExerciseIDs)
	}
	if !reflect.DeepEqual(first.KnowledgeIDs, second.KnowledgeIDs) {
		t.Errorf("knowledge order differs: %v vs %v", first.KnowledgeIDs, second.KnowledgeIDs)
	}

	// Sorted by ID regardless of source order.
	if first.ExerciseIDs[0] != 100 || first.ExerciseIDs[1] != 200 {
		t.Errorf("exercises not sorted: %v", first.ExerciseIDs)
	}
	if first.KnowledgeIDs[0] != 10 || first.KnowledgeIDs[1] != 20 {
		t.Errorf("knowledge points not sorted: %v", first.KnowledgeIDs)
	}
	if first.StudentIDs[0] != 1 || first.StudentIDs[1] != 2 {
		t.Errorf("students not sorted: %v", first.StudentIDs)
	}
}

func TestBuildResponseMatrix(t *testing.T) {
	src := newFakeSource()
	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Student 1 answered exercise 200 (col 1) incorrectly; exercise 100 is
	// unobserved and must be NaN, not 0.
	if got := ds.Responses.At(0, 1); got != 0 {
		t.Errorf("response(1, 200) = %v, want 0", got)
	}
	if got := ds.Responses.At(0, 0); !math.IsNaN(got) {
		t.Errorf("response(1, 100) = %v, want NaN", got)
	}
	if got := ds.Responses.At(1, 0); got != 1 {
		t.Errorf("response(2, 100) = %v, want 1", got)
	}
	if n := ds.ObservedCells(); n != 2 {
		t.Errorf("ObservedCells = %d, want 2", n)
	}
}

func TestBuildExcludesUngradedResponses(t *testing.T) {
	src := newFakeSource()
	src.responses = append(src.responses, ResponseRow{StudentID: 1, ExerciseID: 100, Correct: nil})

	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// The ungraded response must not appear as 0 in the matrix.
	if got := ds.Responses.At(0, 0); !math.IsNaN(got) {
		t.Errorf("ungraded response became %v, want NaN", got)
	}
	if ds.ExcludedUngraded != 1 {
		t.Errorf("ExcludedUngraded = %d, want 1", ds.ExcludedUngraded)
	}
	if len(ds.ByStudent[1]) != 1 {
		t.Errorf("student 1 responses = %d, want 1 (graded only)", len(ds.ByStudent[1]))
	}
}

func TestBuildStudentWithOnlyUngradedResponsesExcluded(t *testing.T) {
	src := newFakeSource()
	src.responses = []ResponseRow{
		{StudentID: 7, ExerciseID: 100, Correct: nil},
	}
	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ds.HasEvidence() {
		t.Error("null-only responses must not count as evidence")
	}
	if ds.Responses != nil {
		t.Error("expected nil response matrix with no graded students")
	}
}

func TestBuildQMatrixWeights(t *testing.T) {
	src := newFakeSource()
	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Explicit weight preserved.
	if got := ds.Weight(0, 0); got != 0.5 {
		t.Errorf("weight(100,10) = %v, want 0.5", got)
	}
	// Missing weight defaults to 1.0.
	if got := ds.Weight(1, 1); got != 1.0 {
		t.Errorf("weight(200,20) = %v, want 1.0", got)
	}
	// Absent pair is 0 in the dense projection.
	if got := ds.Weight(0, 1); got != 0 {
		t.Errorf("weight(100,20) = %v, want 0", got)
	}
}

func TestBuildSkipsDanglingReferences(t *testing.T) {
	src := newFakeSource()
	src.qEntries = append(src.qEntries, QEntryRow{ExerciseID: 999, KnowledgePointID: 10, Weight: 1})
	src.responses = append(src.responses, ResponseRow{StudentID: 1, ExerciseID: 999, Correct: boolPtr(true)})

	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ds.SkippedRefs != 2 {
		t.Errorf("SkippedRefs = %d, want 2", ds.SkippedRefs)
	}
}

func TestBuildNoEvidence(t *testing.T) {
	src := newFakeSource()
	src.responses = nil

	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build with no responses should not error, got %v", err)
	}
	if ds.HasEvidence() {
		t.Error("HasEvidence = true, want false")
	}
	if len(ds.KnowledgeIDs) != 2 || len(ds.ExerciseIDs) != 2 {
		t.Error("structure should still describe the subject scope")
	}
}

func TestKnowledgeParents(t *testing.T) {
	src := newFakeSource()
	parent := int64(10)
	src.kps = append(src.kps, KnowledgePointRow{ID: 30, Name: "mixed numbers", ParentID: &parent})

	ds, err := Build(context.Background(), src, 1)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := ds.KnowledgeParents[30]; got != 10 {
		t.Errorf("parent of 30 = %d, want 10", got)
	}
	if _, ok := ds.KnowledgeParents[10]; ok {
		t.Error("root node should have no parent entry")
	}
}
