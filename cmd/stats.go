package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/practice"
	"github.com/abhisek/examquest/internal/session"
	"github.com/abhisek/examquest/internal/unlock"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show attempt counters and unlock progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		ctx := cmd.Context()
		if err := e.state.Hydrate(ctx); err != nil {
			e.log.Warn("hydrate", zap.Error(err))
		}
		if err := e.state.RefreshStats(ctx); err != nil {
			fmt.Printf("Showing cached stats: %s\n\n", session.Message(err))
		}

		stats := e.state.Stats()
		avail := e.state.Availability()

		fmt.Printf("%-10s  %-8s  %-8s  %s\n", "Mode", "Attempts", "Status", "Requirements")
		fmt.Println(strings.Repeat("─", 60))
		for _, t := range practice.AllTypes() {
			status := "locked"
			if avail.Allows(t) {
				status = "open"
			}
			var reqs []string
			for _, r := range unlock.Requirements(t, stats) {
				reqs = append(reqs, fmt.Sprintf("%s %d/%d", r.Counter.DisplayName(), min(r.Have, r.Need), r.Need))
			}
			req := "-"
			if len(reqs) > 0 {
				req = strings.Join(reqs, ", ")
			}
			fmt.Printf("%-10s  %-8d  %-8s  %s\n", t.DisplayName(), stats.Attempts(t), status, req)
		}

		if active, ok := e.state.ActiveSession(); ok {
			fmt.Printf("\nSession in progress: %s %s, %d/%d XP\n",
				practice.SubjectName(active.Subject), active.PracticeType.DisplayName(),
				active.CurrentXP, active.XPGoal)
		}
		return nil
	},
}
