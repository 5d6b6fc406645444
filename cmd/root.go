package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examquest/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "examquest",
	Short: "Gamified exam practice in your terminal",
	Long: "ExamQuest: practice exam questions against an XP goal, unlock harder " +
		"practice modes and keep your virtual pet happy.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("db", "", "Path to SQLite database file (overrides EXAMQUEST_DB env var)")
	flags.String("config", "", "Path to config file (default: <data dir>/config.yaml)")
	flags.String("env-file", ".env", "Dotenv file loaded before the environment")
	flags.Bool("offline", false, "Use the built-in question bank instead of the backend")
	flags.Bool("verbose", false, "Log at debug level")

	rootCmd.AddCommand(petCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(signOutCmd)
	rootCmd.AddCommand(devServerCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then EXAMQUEST_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
