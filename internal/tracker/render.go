package tracker

import (
	"fmt"
	"io"
	"strings"
)

// addedTimeLayout is how record creation times are printed (always UTC).
const addedTimeLayout = "2006-01-02 15:04:05 UTC"

// Render writes a plain-text rendering of state to w: a header, the status bar,
// the activity banner and the instrument list.
func Render(w io.Writer, state ViewState) error {
	var b strings.Builder

	if state.Phase == PhaseLoading {
		b.WriteString("Loading instruments...\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("🎵 Live Instruments Tracker\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "● Online Users: %d    Total Instruments: %d\n", state.OnlineUsers, len(state.Records))
	if state.LastActivity != "" {
		fmt.Fprintf(&b, "📢 %s\n", state.LastActivity)
	}
	if state.Phase == PhaseLoadFailed {
		b.WriteString("⚠️  Could not load instruments; live updates are paused.\n")
	}
	b.WriteString("\n")

	if len(state.Records) == 0 {
		b.WriteString("No instruments yet. Add one to get started!\n")
	}

	for _, r := range state.Records {
		fmt.Fprintf(&b, "%-30s ID: %d\n", r.Name, r.ID)
		fmt.Fprintf(&b, "  Type: %s\n", r.Type)
		fmt.Fprintf(&b, "  Added: %s\n", r.CreatedAt.UTC().Format(addedTimeLayout))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
