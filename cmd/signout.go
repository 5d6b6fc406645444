package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and erase all local progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Print("This erases your pet, session progress and cached stats. Continue? [y/N] ")
			answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.state.SignOut(cmd.Context()); err != nil {
			return fmt.Errorf("sign out: %w", err)
		}
		fmt.Println("Signed out. Local data cleared.")
		return nil
	},
}

func init() {
	signOutCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
