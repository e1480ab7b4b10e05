// Package diagnosis orchestrates cognitive diagnosis runs: dataset assembly,
// dispatch to the IRT or weighted-evidence estimator, summary statistics,
// and batched persistence of the resulting mastery records.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Chen-yuping/Education-system/internal/dataset"
	"github.com/Chen-yuping/Education-system/internal/irt"
	"github.com/Chen-yuping/Education-system/internal/logger"
	"github.com/Chen-yuping/Education-system/internal/mastery"
	"github.com/Chen-yuping/Education-system/internal/store"
)

// Config tunes a diagnosis service.
type Config struct {
	// BatchSize bounds each persistence transaction so batch writes never
	// hold locks for long. 0 means the default of 50.
	BatchSize int
	// IRTMaxIter caps the optimizer; IRTTol is its loss-change tolerance.
	IRTMaxIter int
	IRTTol     float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{BatchSize: 50, IRTMaxIter: 50, IRTTol: 1e-3}
}

// Service is the single entry point the rest of the system calls to run a
// diagnosis over a subject.
type Service struct {
	src     dataset.Source
	records store.MasteryRepo
	cfg     Config
	log     *logger.Logger
}

// NewService wires a diagnosis service. src supplies subject rows; records
// persists mastery output.
func NewService(src dataset.Source, records store.MasteryRepo, cfg Config, log *logger.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.IRTMaxIter <= 0 {
		cfg.IRTMaxIter = 50
	}
	if cfg.IRTTol <= 0 {
		cfg.IRTTol = 1e-3
	}
	return &Service{
		src:     src,
		records: records,
		cfg:     cfg,
		log:     log.With("component", "diagnosis"),
	}
}

// Run executes a diagnosis for one subject. A missing subject returns a
// *dataset.NotFoundError. Estimator-level problems (insufficient data,
// numerical failure) do not return an error: they yield a Result with
// StatusFailed so the caller always gets a structured answer.
//
// The dataset is a single point-in-time snapshot; responses arriving while
// a long fit runs are simply part of the next diagnosis.
func (s *Service) Run(ctx context.Context, subjectID int64, spec ModelSpec) (*Result, error) {
	ds, err := dataset.Build(ctx, s.src, subjectID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       uuid.New(),
		SubjectID:   subjectID,
		Model:       spec,
		Status:      StatusOK,
		Students:    make(map[int64]*StudentResult),
		SkippedRefs: ds.SkippedRefs,
		GeneratedAt: time.Now(),
	}
	for _, kpID := range ds.KnowledgeIDs {
		result.KnowledgePoints = append(result.KnowledgePoints, KnowledgePointInfo{
			ID:        kpID,
			Name:      ds.KnowledgeNames[kpID],
			SubjectID: subjectID,
		})
	}

	if !ds.HasEvidence() {
		result.Status = StatusFailed
		result.FailureReason = "no graded responses in subject"
		s.log.Warn("diagnosis has no evidence", "subject_id", subjectID, "model", spec.String())
		return result, nil
	}

	start := time.Now()
	switch spec.Kind {
	case KindIRT:
		err = s.runIRT(ctx, ds, spec, result)
	default:
		s.runWeighted(ds, result)
	}
	if err != nil {
		return nil, err
	}

	result.TotalStudents = len(ds.StudentIDs)
	result.DiagnosedStudents = len(result.Students)

	s.log.Info("diagnosis complete",
		"subject_id", subjectID,
		"model", spec.String(),
		"status", string(result.Status),
		"students", result.DiagnosedStudents,
		"knowledge_points", len(result.KnowledgePoints),
		"avg_score", result.AverageOverallScore(),
		"elapsed", time.Since(start),
	)
	return result, nil
}

// runIRT fits the requested variant and projects each student's ability
// through the Q-matrix. Fit failures degrade to a labeled failed result.
func (s *Service) runIRT(ctx context.Context, ds *dataset.Dataset, spec ModelSpec, result *Result) error {
	opts := irt.Options{Variant: spec.Variant, MaxIter: s.cfg.IRTMaxIter, Tol: s.cfg.IRTTol}
	model, err := irt.Fit(ctx, ds, opts)
	if err != nil {
		var insufficient *irt.InsufficientDataError
		var numerical *irt.NumericalError
		switch {
		case errors.As(err, &insufficient):
			result.Status = StatusFailed
			result.FailureReason = insufficient.Error()
			s.log.Warn("IRT fit refused", "subject_id", ds.SubjectID, "observed", insufficient.Observed)
			return nil
		case errors.As(err, &numerical):
			result.Status = StatusFailed
			result.FailureReason = numerical.Error()
			s.log.Error("IRT fit failed numerically", "subject_id", ds.SubjectID, "error", err)
			return nil
		default:
			// Cancellation or a source error: abort the run.
			return err
		}
	}

	result.ItemParams = model.ItemParameters()

	for _, studentID := range ds.StudentIDs {
		kpMastery, err := model.Diagnose(ds, studentID)
		if err != nil {
			return fmt.Errorf("diagnose student %d: %w", studentID, err)
		}
		est := countEvidence(ds, studentID)
		est.Mastery = kpMastery

		sIdx, _ := ds.StudentIndex(studentID)
		result.Students[studentID] = &StudentResult{
			StudentID:      studentID,
			Ability:        model.NormalizedAbility(sIdx),
			Mastery:        kpMastery,
			PracticeCounts: est.PracticeCounts,
			CorrectCounts:  est.CorrectCounts,
			OverallScore:   mastery.Overall(kpMastery),
			WeakPoints:     mastery.WeakPoints(ds, est),
			AnswerCount:    est.AnswerCount,
		}
	}
	return nil
}

// runWeighted applies the weighted-evidence aggregation to every student
// with responses.
func (s *Service) runWeighted(ds *dataset.Dataset, result *Result) {
	for _, studentID := range ds.StudentIDs {
		est := mastery.Aggregate(ds, studentID)
		result.Students[studentID] = &StudentResult{
			StudentID:      studentID,
			Mastery:        est.Mastery,
			PracticeCounts: est.PracticeCounts,
			CorrectCounts:  est.CorrectCounts,
			OverallScore:   mastery.Overall(est.Mastery),
			WeakPoints:     mastery.WeakPoints(ds, est),
			AnswerCount:    est.AnswerCount,
		}
	}
}

// countEvidence tallies unweighted practice and correct counts per
// knowledge point for one student, used alongside the IRT mastery
// projection.
func countEvidence(ds *dataset.Dataset, studentID int64) *mastery.Estimate {
	est := &mastery.Estimate{
		PracticeCounts: make(map[int64]int, len(ds.KnowledgeIDs)),
		CorrectCounts:  make(map[int64]int, len(ds.KnowledgeIDs)),
	}
	for _, kpID := range ds.KnowledgeIDs {
		est.PracticeCounts[kpID] = 0
		est.CorrectCounts[kpID] = 0
	}
	responses := ds.ByStudent[studentID]
	est.AnswerCount = len(responses)
	for _, r := range responses {
		for kpIdx, kpID := range ds.KnowledgeIDs {
			if ds.Weight(r.ExerciseIdx, kpIdx) <= 0 {
				continue
			}
			est.PracticeCounts[kpID]++
			if r.Correct {
				est.CorrectCounts[kpID]++
			}
		}
	}
	return est
}

// Persist writes a successful result's mastery records as key-ordered,
// bounded upsert batches scoped to the named model. It returns the number
// of students whose records were saved.
func (s *Service) Persist(ctx context.Context, result *Result) (int, error) {
	if result.Status != StatusOK {
		return 0, fmt.Errorf("cannot persist failed diagnosis of subject %d: %s",
			result.SubjectID, result.FailureReason)
	}

	model, err := s.records.EnsureModel(ctx, result.Model.String(), "")
	if err != nil {
		return 0, err
	}

	var rows []store.MasteryRecord
	for _, sr := range result.Students {
		for kpID, level := range sr.Mastery {
			rows = append(rows, store.MasteryRecord{
				StudentID:        sr.StudentID,
				KnowledgePointID: kpID,
				ModelID:          model.ID,
				MasteryLevel:     level,
				PracticeCount:    sr.PracticeCounts[kpID],
				CorrectCount:     sr.CorrectCounts[kpID],
				LastPracticed:    result.GeneratedAt,
			})
		}
	}

	if err := s.records.UpsertBatch(ctx, rows, s.cfg.BatchSize); err != nil {
		return 0, fmt.Errorf("persist diagnosis %s: %w", result.RunID, err)
	}

	s.log.Info("diagnosis persisted",
		"run_id", result.RunID.String(),
		"model", result.Model.String(),
		"records", len(rows),
		"students", len(result.Students),
	)
	return len(result.Students), nil
}
