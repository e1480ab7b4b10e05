package dataset

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Build assembles a Dataset for one subject. It is a pure read: the snapshot
// reflects the rows the source returned at call time, and concurrent new
// responses are simply not part of this run.
//
// A subject with no graded responses yields a Dataset with HasEvidence()
// false rather than an error; the caller decides whether that is a problem.
func Build(ctx context.Context, src Source, subjectID int64) (*Dataset, error) {
	ok, err := src.SubjectExists(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("resolve subject %d: %w", subjectID, err)
	}
	if !ok {
		return nil, &NotFoundError{SubjectID: subjectID}
	}

	kps, err := src.KnowledgePoints(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge points: %w", err)
	}
	exercises, err := src.Exercises(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load exercises: %w", err)
	}
	qEntries, err := src.QEntries(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load q-matrix: %w", err)
	}
	responses, err := src.Responses(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	d := &Dataset{
		SubjectID:        subjectID,
		KnowledgeNames:   make(map[int64]string, len(kps)),
		KnowledgeParents: make(map[int64]int64),
		ByStudent:        make(map[int64][]Response),
		studentIdx:       make(map[int64]int),
		exerciseIdx:      make(map[int64]int, len(exercises)),
		knowledgeIdx:     make(map[int64]int, len(kps)),
	}

	for _, kp := range kps {
		d.KnowledgeIDs = append(d.KnowledgeIDs, kp.ID)
		d.KnowledgeNames[kp.ID] = kp.Name
		if kp.ParentID != nil {
			d.KnowledgeParents[kp.ID] = *kp.ParentID
		}
	}
	sort.Slice(d.KnowledgeIDs, func(i, j int) bool { return d.KnowledgeIDs[i] < d.KnowledgeIDs[j] })
	for i, id := range d.KnowledgeIDs {
		d.knowledgeIdx[id] = i
	}

	for _, ex := range exercises {
		d.ExerciseIDs = append(d.ExerciseIDs, ex.ID)
	}
	sort.Slice(d.ExerciseIDs, func(i, j int) bool { return d.ExerciseIDs[i] < d.ExerciseIDs[j] })
	for i, id := range d.ExerciseIDs {
		d.exerciseIdx[id] = i
	}

	if len(d.ExerciseIDs) > 0 && len(d.KnowledgeIDs) > 0 {
		d.Q = mat.NewDense(len(d.ExerciseIDs), len(d.KnowledgeIDs), nil)
	}
	for _, entry := range qEntries {
		exIdx, okEx := d.exerciseIdx[entry.ExerciseID]
		kpIdx, okKp := d.knowledgeIdx[entry.KnowledgePointID]
		if !okEx || !okKp {
			d.SkippedRefs++
			continue
		}
		w := entry.Weight
		if w <= 0 {
			w = 1.0
		}
		d.Q.Set(exIdx, kpIdx, w)
	}

	// First pass over responses: collect the graded ones and the set of
	// students that produced them.
	type graded struct {
		studentID int64
		resp      Response
	}
	var kept []graded
	studentSet := make(map[int64]bool)
	for _, r := range responses {
		if r.Correct == nil {
			d.ExcludedUngraded++
			continue
		}
		exIdx, ok := d.exerciseIdx[r.ExerciseID]
		if !ok {
			d.SkippedRefs++
			continue
		}
		kept = append(kept, graded{
			studentID: r.StudentID,
			resp: Response{
				ExerciseID:    r.ExerciseID,
				ExerciseIdx:   exIdx,
				Correct:       *r.Correct,
				TimeSpentSecs: r.TimeSpentSecs,
			},
		})
		studentSet[r.StudentID] = true
	}

	for id := range studentSet {
		d.StudentIDs = append(d.StudentIDs, id)
	}
	sort.Slice(d.StudentIDs, func(i, j int) bool { return d.StudentIDs[i] < d.StudentIDs[j] })
	for i, id := range d.StudentIDs {
		d.studentIdx[id] = i
	}

	if len(d.StudentIDs) > 0 && len(d.ExerciseIDs) > 0 {
		cells := make([]float64, len(d.StudentIDs)*len(d.ExerciseIDs))
		for i := range cells {
			cells[i] = math.NaN()
		}
		d.Responses = mat.NewDense(len(d.StudentIDs), len(d.ExerciseIDs), cells)
	}

	for _, g := range kept {
		d.ByStudent[g.studentID] = append(d.ByStudent[g.studentID], g.resp)
		sIdx := d.studentIdx[g.studentID]
		v := 0.0
		if g.resp.Correct {
			v = 1.0
		}
		d.Responses.Set(sIdx, g.resp.ExerciseIdx, v)
	}

	return d, nil
}
