package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/selector"
	"github.com/abhisek/skilltrace/internal/store"
)

var submitCmd = &cobra.Command{
	Use:   "submit <learner-id> <kc-id> <item-id>",
	Short: "Record a graded answer",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		correct, _ := cmd.Flags().GetBool("correct")
		hint, _ := cmd.Flags().GetBool("hint")
		timeMs, _ := cmd.Flags().GetInt("time-ms")
		value, _ := cmd.Flags().GetString("value")
		session, _ := cmd.Flags().GetString("session")

		res, err := eng.SubmitAnswer(cmd.Context(), selector.Answer{
			LearnerID:      store.ID(args[0]),
			KCID:           store.ID(args[1]),
			ItemID:         store.ID(args[2]),
			Correct:        correct,
			HintUsed:       hint,
			ResponseTimeMs: timeMs,
			ResponseValue:  value,
			SessionID:      session,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Interaction: %s (rated %s)\n", res.InteractionID, res.Rating)
		fmt.Printf("Mastery:     %.3f -> %.3f (%+.3f)\n",
			res.PMasteryBefore, res.PMasteryAfter, res.MasteryDelta)
		fmt.Printf("Memory:      stability %.2f days, difficulty %.1f\n",
			res.Stability, res.Difficulty)
		fmt.Printf("Next review: %s\n", res.NextReviewAt.Format("2006-01-02"))
		return nil
	},
}

func init() {
	submitCmd.Flags().Bool("correct", false, "Whether the answer was correct")
	submitCmd.Flags().Bool("hint", false, "Whether a hint was used")
	submitCmd.Flags().Int("time-ms", 0, "Response time in milliseconds")
	submitCmd.Flags().String("value", "", "The raw response value")
	submitCmd.Flags().String("session", "", "Session ID to tag the interaction with")
}
