package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// Composer is the text input for sending messages. User edits raise
// onInput so the typing tracker sees keystrokes; programmatic text
// changes (clearing after a send, restoring after a rollback) do not.
type Composer struct {
	*tview.InputField
	onSend   func(text string)
	onInput  func()
	onBlur   func()
	suppress bool
}

// NewComposer creates a new message composer.
func NewComposer() *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)

	c := &Composer{InputField: input}

	input.SetChangedFunc(func(text string) {
		if !c.suppress && c.onInput != nil {
			c.onInput()
		}
	})

	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && c.onSend != nil {
			text := c.GetText()
			if text != "" {
				c.onSend(text)
			}
		}
	})

	input.SetBlurFunc(func() {
		if c.onBlur != nil {
			c.onBlur()
		}
	})

	return c
}

// SetOnSend sets the callback when a message is sent.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// SetOnInput sets the callback for user edits.
func (c *Composer) SetOnInput(fn func()) {
	c.onInput = fn
}

// SetOnBlur sets the callback when the composer loses focus.
func (c *Composer) SetOnBlur(fn func()) {
	c.onBlur = fn
}

// SetTextQuiet replaces the content without raising onInput.
func (c *Composer) SetTextQuiet(text string) {
	c.suppress = true
	c.SetText(text)
	c.suppress = false
}
