package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/engine"
	"github.com/abhisek/skilltrace/internal/logger"
	"github.com/abhisek/skilltrace/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "skilltrace",
	Short: "Adaptive-learning decision engine",
	Long: "Skilltrace estimates what a learner knows (Bayesian Knowledge Tracing),\n" +
		"schedules reviews against forgetting (FSRS), calibrates items (2PL IRT),\n" +
		"and picks what each learner should practice next.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database DSN: SQLite path or postgres:// URL (overrides SKILLTRACE_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("log", "dev", "Log mode: dev or prod")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(calibrateCmd)
}

// openEngine builds the engine and its store from the command flags.
// Callers must Close() the returned store.
func openEngine(cmd *cobra.Command) (*engine.Engine, *store.Store, error) {
	dsn, _ := cmd.Flags().GetString("db")
	if dsn == "" {
		dsn = os.Getenv("SKILLTRACE_DB")
	}
	if dsn == "" {
		var err error
		dsn, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve DB path: %w", err)
		}
	}

	cfg := engine.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		cfg, err = engine.LoadConfig(path)
		if err != nil {
			return nil, nil, err
		}
	}

	mode, _ := cmd.Flags().GetString("log")
	log, err := logger.New(mode)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}

	st, err := store.Open(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	eng, err := engine.New(st.Repo(), cfg, log)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return eng, st, nil
}
