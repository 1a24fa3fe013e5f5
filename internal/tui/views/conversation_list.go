package views

import (
	"github.com/rivo/tview"

	"github.com/cove-chat/cove/internal/tui/model"
)

// ConversationList is the main conversation table.
type ConversationList struct {
	*tview.Table
	items      []model.ConversationItem
	selectedFn func() (int, int)
}

// NewConversationList creates the conversation table.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false)
	table.SetBorder(true).SetTitle(" Conversations ")

	cl := &ConversationList{Table: table}
	cl.selectedFn = table.GetSelection
	return cl
}

// Update refreshes the table with new data.
func (cl *ConversationList) Update(items []model.ConversationItem) {
	cl.items = items
	cl.Clear()

	// Header row.
	cl.SetCell(0, 0, tview.NewTableCell(" With").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 1, tview.NewTableCell(" Last Message").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))
	cl.SetCell(0, 2, tview.NewTableCell(" Time").SetSelectable(false).SetTextColor(tview.Styles.SecondaryTextColor))

	for i, item := range items {
		row := i + 1
		name := item.PeerUsername
		if name == "" {
			name = item.ID
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+sanitizeForTerminal(name)).SetMaxWidth(30).SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(" "+sanitizeForTerminal(item.LastMessagePreview)).SetMaxWidth(40).SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(" "+formatTimestamp(item.LastMessageAt)).SetMaxWidth(12))
	}
}

// Selected returns the currently selected conversation.
func (cl *ConversationList) Selected() (model.ConversationItem, bool) {
	row, _ := cl.selectedFn()
	idx := row - 1 // account for header
	if idx >= 0 && idx < len(cl.items) {
		return cl.items[idx], true
	}
	return model.ConversationItem{}, false
}
