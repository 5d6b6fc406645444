package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/examquest/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent practice session events",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")

		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}

		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer s.Close()

		events, err := s.SessionLog().Recent(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No session events found.")
			return nil
		}

		fmt.Printf("%-5s  %-19s  %-12s  %-8s  %s\n", "ID", "Timestamp", "Session", "Action", "Detail")
		fmt.Println(strings.Repeat("─", 90))

		for _, e := range events {
			if sessionID != "" && !strings.HasPrefix(e.SessionID, sessionID) {
				continue
			}
			sid := e.SessionID
			if len(sid) > 12 {
				sid = sid[:12]
			}
			fmt.Printf("%-5d  %-19s  %-12s  %-8s  %s\n",
				e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"), sid, e.Action, formatDetail(e.Detail))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 50, "Maximum number of events to show")
	historyCmd.Flags().String("session", "", "Only show events for sessions with this id prefix")
}

// formatDetail renders detail fields as sorted key=value pairs.
func formatDetail(d map[string]any) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, d[k]))
	}
	return strings.Join(parts, " ")
}
