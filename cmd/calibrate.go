package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/store"
)

var calibrateCmd = &cobra.Command{
	Use:   "calibrate [item-id]",
	Short: "Recalibrate item parameters from recorded responses",
	Long: "With an item ID, recalibrates that single item. Without one, runs a\n" +
		"batch recalibration over every item with enough responses.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if len(args) == 1 {
			res, err := eng.CalibrateItem(cmd.Context(), store.ID(args[0]))
			if err != nil {
				return err
			}
			if !res.Calibrated {
				fmt.Printf("%s: insufficient data (%d responses), parameters unchanged\n",
					res.ItemID, res.SampleSize)
				return nil
			}
			fmt.Printf("%s: b %.2f -> %.2f, a %.2f -> %.2f (n=%d, converged=%v)\n",
				res.ItemID, res.OldDifficulty, res.Difficulty,
				res.OldDiscrimination, res.Discrimination, res.SampleSize, res.Converged)
			return nil
		}

		min, _ := cmd.Flags().GetInt("min-responses")
		batch, err := eng.CalibrateAll(cmd.Context(), min)
		if err != nil {
			return err
		}
		for _, res := range batch.Results {
			fmt.Printf("%s: b %.2f -> %.2f, a %.2f -> %.2f (n=%d)\n",
				res.ItemID, res.OldDifficulty, res.Difficulty,
				res.OldDiscrimination, res.Discrimination, res.SampleSize)
		}
		for id, ferr := range batch.Failures {
			fmt.Printf("%s: FAILED: %v\n", id, ferr)
		}
		fmt.Printf("Calibrated %d items, %d failures\n", len(batch.Results), len(batch.Failures))
		return nil
	},
}

func init() {
	calibrateCmd.Flags().Int("min-responses", 0, "Minimum response count (0 = configured default)")
}
