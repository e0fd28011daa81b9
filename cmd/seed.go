package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/curriculum"
	"github.com/abhisek/skilltrace/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo arithmetic curriculum into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, _ := cmd.Flags().GetString("db")
		if dsn == "" {
			dsn = os.Getenv("SKILLTRACE_DB")
		}
		if dsn == "" {
			var err error
			dsn, err = store.DefaultDBPath()
			if err != nil {
				return fmt.Errorf("resolve DB path: %w", err)
			}
		}
		st, err := store.Open(dsn)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		cur := curriculum.Demo()
		if err := cur.SeedStore(cmd.Context(), st); err != nil {
			return err
		}
		fmt.Printf("Seeded %d KCs, %d prerequisite edges, %d items\n",
			len(cur.KCs), len(cur.Prereqs), len(cur.Items))
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init <learner-id>",
	Short: "Initialize all entry-tier KCs for a learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		created, err := eng.InitializeLearnerKCs(cmd.Context(), store.ID(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("Initialized %d new skill states\n", created)
		return nil
	},
}
