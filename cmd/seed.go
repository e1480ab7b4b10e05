package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Chen-yuping/Education-system/internal/store"
)

// seedCmd loads a small synthetic subject so the diagnose and record
// commands have something to work with locally.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a small demo subject with exercises and responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		db := st.DB()
		subject := store.Subject{Name: "Algebra Basics", Description: "Demo subject"}
		if err := db.Create(&subject).Error; err != nil {
			return fmt.Errorf("seed subject: %w", err)
		}

		kps := []store.KnowledgePoint{
			{SubjectID: subject.ID, Name: "Linear equations"},
			{SubjectID: subject.ID, Name: "Quadratic equations"},
			{SubjectID: subject.ID, Name: "Factoring"},
		}
		if err := db.Create(&kps).Error; err != nil {
			return fmt.Errorf("seed knowledge points: %w", err)
		}
		// Factoring sits under quadratics in the knowledge tree.
		kps[2].ParentID = &kps[1].ID
		if err := db.Save(&kps[2]).Error; err != nil {
			return fmt.Errorf("link knowledge tree: %w", err)
		}

		var exercises []store.Exercise
		for i := 1; i <= 6; i++ {
			exercises = append(exercises, store.Exercise{
				SubjectID:    subject.ID,
				Title:        fmt.Sprintf("Problem %d", i),
				QuestionType: "single",
			})
		}
		if err := db.Create(&exercises).Error; err != nil {
			return fmt.Errorf("seed exercises: %w", err)
		}

		var entries []store.QMatrixEntry
		for i, ex := range exercises {
			entries = append(entries, store.QMatrixEntry{
				ExerciseID:       ex.ID,
				KnowledgePointID: kps[i%len(kps)].ID,
				Weight:           1.0,
			})
		}
		if err := db.Create(&entries).Error; err != nil {
			return fmt.Errorf("seed q-matrix: %w", err)
		}

		// Two students: one strong, one struggling.
		correct := true
		incorrect := false
		var logs []store.ResponseLog
		for _, ex := range exercises {
			logs = append(logs,
				store.ResponseLog{StudentID: 1, ExerciseID: ex.ID, IsCorrect: &correct, TimeSpentSecs: 30},
				store.ResponseLog{StudentID: 2, ExerciseID: ex.ID, IsCorrect: &incorrect, TimeSpentSecs: 90},
			)
		}
		if err := db.Create(&logs).Error; err != nil {
			return fmt.Errorf("seed responses: %w", err)
		}

		fmt.Printf("Seeded subject %d with %d knowledge points, %d exercises, %d responses\n",
			subject.ID, len(kps), len(exercises), len(logs))
		return nil
	},
}
