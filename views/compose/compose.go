package compose

import (
	"wave-portal-tui/helpers"
	"wave-portal-tui/styles"
	"wave-portal-tui/submit"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// State is what the compose box shows.
type State struct {
	Connected bool
	OnTarget  bool
	Focused   bool
	CanSubmit bool
	Phase     submit.State
	LastTx    common.Hash
	Spinner   string
}

// NewInput creates the message input
func NewInput() textinput.Model {
	in := textinput.New()
	in.Placeholder = "Say something nice…"
	in.Prompt = "Message: "
	in.PromptStyle = lipgloss.NewStyle().Foreground(styles.CAccent)
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.CText)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)
	in.CharLimit = 280
	in.Width = 60
	return in
}

// Render renders the compose box. Write actions are hidden unless an account is
// connected on the target network.
func Render(input textinput.Model, s State) string {
	if !s.Connected {
		btn := styles.ActiveButtonStyle.Render("Connect Wallet")
		return btn + "  " + styles.Muted("press ") + styles.Key("w") + styles.Muted(" to unlock your keystore account")
	}
	if !s.OnTarget {
		return styles.Muted("Waving is disabled on this network.")
	}

	switch s.Phase {
	case submit.Submitting:
		return s.Spinner + " waiting for the wallet to sign…"
	case submit.Mining:
		return s.Spinner + " Mining… " + styles.Muted(helpers.ShortenAddr(s.LastTx.Hex()))
	}

	btnStyle := styles.ButtonStyle
	if s.CanSubmit {
		btnStyle = styles.ActiveButtonStyle
	}
	hint := ""
	if !s.Focused {
		hint = "  " + styles.Muted("Tab to write")
	}
	return input.View() + "\n\n" + btnStyle.Render("Wave at Me") + hint
}
