package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Chen-yuping/Education-system/internal/dataset"
	"github.com/Chen-yuping/Education-system/internal/diagnosis"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose <subject-id>",
	Short: "Run a cognitive diagnosis over a subject",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subjectID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid subject id %q: %w", args[0], err)
		}

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

		cfg := diagnosis.DefaultConfig()
		cfg.BatchSize = viper.GetInt("batch_size")
		cfg.IRTMaxIter = viper.GetInt("irt_max_iter")

		svc := diagnosis.NewService(st.Subjects(), st.Mastery(), cfg, log)
		spec := diagnosis.ParseModelName(viper.GetString("model"))

		result, err := svc.Run(cmd.Context(), subjectID, spec)
		var notFound *dataset.NotFoundError
		if errors.As(err, &notFound) {
			return fmt.Errorf("subject %d does not exist", subjectID)
		}
		if err != nil {
			return err
		}

		if result.Status != diagnosis.StatusOK {
			fmt.Printf("diagnosis failed for subject %d (model %s): %s\n",
				subjectID, spec.String(), result.FailureReason)
			return nil
		}

		fmt.Printf("Model:           %s\n", spec.String())
		fmt.Printf("Students:        %d diagnosed of %d\n", result.DiagnosedStudents, result.TotalStudents)
		fmt.Printf("Knowledge pts:   %d (coverage %.0f%%)\n",
			len(result.KnowledgePoints), result.KnowledgeCoverage()*100)
		fmt.Printf("Average score:   %.4f\n", result.AverageOverallScore())
		if result.SkippedRefs > 0 {
			fmt.Printf("Skipped refs:    %d\n", result.SkippedRefs)
		}

		if persist, _ := cmd.Flags().GetBool("persist"); persist {
			saved, err := svc.Persist(cmd.Context(), result)
			if err != nil {
				return err
			}
			fmt.Printf("Saved records for %d students\n", saved)
		}
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().String("model", "simple", `Diagnostic model name (e.g. "simple", "NCD", "IRT-2PL")`)
	diagnoseCmd.Flags().Int("batch-size", 50, "Persistence batch size")
	diagnoseCmd.Flags().Int("irt-max-iter", 50, "IRT optimizer iteration cap")
	diagnoseCmd.Flags().Bool("persist", false, "Write mastery records to the database")

	_ = viper.BindPFlag("model", diagnoseCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("batch_size", diagnoseCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("irt_max_iter", diagnoseCmd.Flags().Lookup("irt-max-iter"))
}
