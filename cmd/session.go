package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/store"
)

var sessionCmd = &cobra.Command{
	Use:   "session <learner-id>",
	Short: "Build a multi-item practice session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		items, _ := cmd.Flags().GetInt("items")
		session, err := eng.CreateSession(cmd.Context(), store.ID(args[0]), items)
		if err != nil {
			return err
		}
		if len(session) == 0 {
			fmt.Println("Nothing to learn right now.")
			return nil
		}

		for i, sel := range session {
			kind := "practice"
			if sel.IsReview {
				kind = "review"
			}
			fmt.Printf("%2d. [%s] %-28s item %-18s P(correct) %.2f\n",
				i+1, kind, sel.KC.Name, sel.Item.ID, sel.PredictedPCorrect)
		}
		return nil
	},
}

func init() {
	sessionCmd.Flags().Int("items", 5, "Number of items to include")
}
