package install

import "github.com/charmbracelet/huh"

// Confirmer asks the user a yes/no question.
// Tests inject a fake; the CLI uses the terminal implementation.
type Confirmer interface {
	Confirm(title string) (bool, error)
}

// TerminalConfirmer renders an interactive yes/no prompt on the terminal.
type TerminalConfirmer struct{}

// Confirm shows the prompt and returns the user's answer.
func (TerminalConfirmer) Confirm(title string) (bool, error) {
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}
