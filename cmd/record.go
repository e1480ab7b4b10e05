package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Chen-yuping/Education-system/internal/mastery"
	"github.com/Chen-yuping/Education-system/internal/store"
)

var recordCmd = &cobra.Command{
	Use:   "record <student-id> <exercise-id>",
	Short: "Record a graded response and update mastery incrementally",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid student id %q: %w", args[0], err)
		}
		exerciseID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid exercise id %q: %w", args[1], err)
		}
		correct, _ := cmd.Flags().GetBool("correct")
		timeSpent, _ := cmd.Flags().GetInt("time-spent")

		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		isCorrect := correct
		if err := st.Responses().Append(ctx, &store.ResponseLog{
			StudentID:     studentID,
			ExerciseID:    exerciseID,
			IsCorrect:     &isCorrect,
			TimeSpentSecs: timeSpent,
		}); err != nil {
			return err
		}

		model, err := st.Mastery().EnsureModel(ctx, "simple", "incremental correct-ratio mastery")
		if err != nil {
			return err
		}
		updater := mastery.NewUpdater(st.Mastery(), model.ID, log)
		if err := updater.RecordResponse(ctx, studentID, exerciseID, correct); err != nil {
			return err
		}

		fmt.Printf("Recorded response: student=%d exercise=%d correct=%v\n",
			studentID, exerciseID, correct)
		return nil
	},
}

func init() {
	recordCmd.Flags().Bool("correct", false, "Whether the answer was correct")
	recordCmd.Flags().Int("time-spent", 0, "Seconds spent answering")
}
