package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examquest/internal/app"
)

// runApp builds dependencies and launches the TUI. Hydration happens on
// the welcome screen.
func runApp(cmd *cobra.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	return app.Run(e.state)
}
