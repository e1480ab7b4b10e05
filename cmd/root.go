package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Chen-yuping/Education-system/internal/logger"
	"github.com/Chen-yuping/Education-system/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "edudiag",
	Short: "Cognitive diagnosis engine for the education platform",
	Long: "Edudiag estimates per-student knowledge-point mastery from answer logs,\n" +
		"using IRT parameter fitting or Q-matrix-weighted evidence aggregation.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides EDUDIAG_DB env var)")
	rootCmd.PersistentFlags().String("log-mode", "dev", "Logging mode: dev or prod")

	viper.SetEnvPrefix("EDUDIAG")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("log_mode", rootCmd.PersistentFlags().Lookup("log-mode"))

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then EDUDIAG_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

func newLogger() (*logger.Logger, error) {
	return logger.New(viper.GetString("log_mode"))
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, err := resolveDBPath(cmd)
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}
