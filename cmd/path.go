package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/skilltrace/internal/store"
)

var pathCmd = &cobra.Command{
	Use:   "path <learner-id>",
	Short: "Show the learner's recommended learning path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		path, err := eng.LearningPath(cmd.Context(), store.ID(args[0]))
		if err != nil {
			return err
		}
		if len(path) == 0 {
			fmt.Println("No eligible KCs.")
			return nil
		}
		for i, entry := range path {
			fmt.Printf("%2d. %-28s %-12s priority %.2f\n",
				i+1, entry.Name, entry.Reason, entry.Priority)
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule <learner-id>",
	Short: "Show due and upcoming reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		days, _ := cmd.Flags().GetInt("days")
		sched, err := eng.ReviewSchedule(cmd.Context(), store.ID(args[0]), days)
		if err != nil {
			return err
		}

		fmt.Printf("Due now: %d\n", sched.DueNow)
		for _, d := range sched.Due {
			fmt.Printf("  %-20s overdue %.1fd  retrievability %.2f  priority %.2f\n",
				d.KCID, d.OverdueDays, d.Retrievability, d.Priority)
		}
		fmt.Printf("Upcoming (%dd): %d\n", days, sched.TotalUpcoming)
		for _, u := range sched.Upcoming {
			fmt.Printf("  %-20s due %s  stability %.1fd\n",
				u.KCID, u.NextReviewAt.Format("2006-01-02"), u.Stability)
		}
		return nil
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview <learner-id>",
	Short: "Show the learner's mastery overview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, st, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ov, err := eng.MasteryOverview(cmd.Context(), store.ID(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("Tracked %d KCs, %d mastered, mean mastery %.2f, theta %+.2f\n",
			ov.Tracked, ov.Mastered, ov.MeanPMastery, ov.Theta)
		for _, kc := range ov.KCs {
			fmt.Printf("  %-28s %-12s mastery %.2f  accuracy %.2f  retention %.2f\n",
				kc.Name, kc.Status, kc.PMastery, kc.Accuracy, kc.Retention)
		}
		return nil
	},
}

func init() {
	scheduleCmd.Flags().Int("days", 7, "Days ahead to include in the upcoming list")
}
