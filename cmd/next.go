package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/store"
)

var nextCmd = &cobra.Command{
	Use:   "next <learner-id> [kc-id]",
	Short: "Show the next recommended item for a learner",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var kc *store.ID
		if len(args) == 2 {
			id := store.ID(args[1])
			kc = &id
		}

		sel, err := eng.NextItem(cmd.Context(), store.ID(args[0]), kc)
		if err != nil {
			return err
		}
		if sel == nil {
			fmt.Println("Nothing to learn right now.")
			return nil
		}

		kind := "practice"
		if sel.IsReview {
			kind = "review"
		}
		fmt.Printf("KC:        %s (%s, %s)\n", sel.KC.Name, sel.KC.ID, kind)
		fmt.Printf("Item:      %s\n", sel.Item.ID)
		fmt.Printf("Prompt:    %s\n", sel.Item.Prompt)
		fmt.Printf("P(correct): %.2f   mastery: %.2f   b: %.2f   a: %.2f\n",
			sel.PredictedPCorrect, sel.PMastery, sel.Difficulty, sel.Discrimination)
		return nil
	},
}
