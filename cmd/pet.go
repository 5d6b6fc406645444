package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/examquest/internal/pet"
)

var petCmd = &cobra.Command{
	Use:   "pet",
	Short: "Check on your pet",
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, _ := cmd.Flags().GetBool("feed")
		play, _ := cmd.Flags().GetBool("play")

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.state.Hydrate(cmd.Context()); err != nil {
			e.log.Warn("hydrate", zap.Error(err))
		}

		s := e.state.Pet()
		if feed {
			s = e.state.Feed()
		}
		if play {
			s = e.state.Play()
		}
		printPet(s)
		return nil
	},
}

func init() {
	petCmd.Flags().Bool("feed", false, "Feed the pet")
	petCmd.Flags().Bool("play", false, "Play with the pet to cool it down")
}

func printPet(s pet.State) {
	fmt.Printf("Mood:        %s %s\n", s.Mood.Emoji(), s.Mood)
	fmt.Printf("Food:        %d/%d\n", s.FoodLevel, pet.MaxFood)
	fmt.Printf("Temperature: %d/%d\n", s.Temperature, pet.MaxTemp)
}
