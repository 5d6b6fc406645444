package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/examquest/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// RefreshMsg asks the receiving screen to reload what it shows from the
// application state.
type RefreshMsg struct{}

// StartPracticeMsg asks the home screen to open the practice wizard.
type StartPracticeMsg struct{}

// BackHandler is an optional interface for screens that replace the default
// Esc behaviour of popping one screen.
type BackHandler interface {
	Back() tea.Cmd
}

// SignedOutMsg tells the application to drop every screen and return to
// the welcome screen.
type SignedOutMsg struct{}
