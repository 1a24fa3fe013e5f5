package views

import (
	"fmt"

	"github.com/rivo/tview"
)

// TypingBar is the one-line typing indicator under the message view.
type TypingBar struct {
	*tview.TextView
}

// NewTypingBar creates an empty typing bar.
func NewTypingBar() *TypingBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	return &TypingBar{TextView: tv}
}

// SetLine replaces the indicator text; empty clears it.
func (tb *TypingBar) SetLine(line string) {
	tb.Clear()
	if line != "" {
		_, _ = fmt.Fprintf(tb, " [::d]%s[-:-:-]", sanitizeForTerminal(line))
	}
}
