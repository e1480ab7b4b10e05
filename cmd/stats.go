package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Chen-yuping/Education-system/internal/mastery"
)

var statsCmd = &cobra.Command{
	Use:   "stats <student-id> <subject-id>",
	Short: "Show a student's mastery records for a subject",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid student id %q: %w", args[0], err)
		}
		subjectID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid subject id %q: %w", args[1], err)
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Mastery().ListByStudentSubject(cmd.Context(), studentID, subjectID)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No mastery records yet")
			return nil
		}

		fmt.Printf("%-12s %-10s %-12s %-10s %-8s\n",
			"knowledge", "mastery", "band", "practiced", "correct")
		for _, r := range records {
			fmt.Printf("%-12d %-10.4f %-12s %-10d %-8d\n",
				r.KnowledgePointID,
				r.MasteryLevel,
				mastery.Band(r.MasteryLevel, r.PracticeCount),
				r.PracticeCount,
				r.CorrectCount,
			)
		}
		return nil
	},
}
