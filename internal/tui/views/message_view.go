package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/cove-chat/cove/internal/chat"
)

// MessageView displays the timeline of a single conversation.
type MessageView struct {
	*tview.TextView
	localUserID string
}

// NewMessageView creates a new message view.
func NewMessageView() *MessageView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true).SetTitle(" Messages ")

	return &MessageView{TextView: tv}
}

// SetLocalUser sets the id rendered as "You".
func (mv *MessageView) SetLocalUser(userID string) {
	mv.localUserID = userID
}

// SetPeerName updates the title with the peer's name.
func (mv *MessageView) SetPeerName(name string) {
	mv.SetTitle(fmt.Sprintf(" %s ", name))
}

// Update re-renders the timeline, oldest first. Provisional entries
// still awaiting the server render with a sending marker.
func (mv *MessageView) Update(msgs []chat.Message) {
	mv.Clear()

	for _, m := range msgs {
		sender := m.SenderName
		if sender == "" {
			sender = m.SenderID
		}
		if m.SenderID == mv.localUserID {
			sender = "You"
		}

		ts := formatTimestamp(m.CreatedAt.UnixMilli())
		marker := ""
		if chat.IsProvisional(m.ID) {
			marker = " [::d](sending...)[-:-:-]"
		}

		line := fmt.Sprintf("[::b]%s[-:-:-] [::d]%s[-:-:-]%s\n%s\n\n", sender, ts, marker, sanitizeForTerminal(m.Content))
		_, _ = fmt.Fprint(mv, line)
	}

	mv.ScrollToEnd()
}
