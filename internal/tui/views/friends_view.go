package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/cove-chat/cove/internal/api"
)

// Row kinds in the friends table.
const (
	rowFriend   = "friend"
	rowIncoming = "incoming"
	rowOutgoing = "outgoing"
	rowResult   = "result"
)

type friendRow struct {
	kind     string
	id       string
	username string
}

// FriendsView is the friends page: a username search box plus a table
// of friends, pending requests and search results with per-row
// actions.
type FriendsView struct {
	*tview.Flex
	search *tview.InputField
	table  *tview.Table
	rows   []friendRow

	onQuery   func(query string)
	onOpen    func(friendID string)
	onAccept  func(senderID string)
	onDecline func(senderID string)
	onCancel  func(receiverID string)
	onRemove  func(friendID string)
	onRequest func(username string)
}

// NewFriendsView creates the friends page.
func NewFriendsView() *FriendsView {
	fv := &FriendsView{
		search: tview.NewInputField().SetLabel(" Search (3+ chars): ").SetFieldWidth(0),
		table:  tview.NewTable().SetSelectable(true, false),
	}
	fv.table.SetBorder(true).SetTitle(" Friends  [::d]Enter:open/accept/add  d:decline  c:cancel  x:remove[-:-:-] ")

	fv.search.SetChangedFunc(func(text string) {
		if fv.onQuery != nil {
			fv.onQuery(text)
		}
	})

	fv.table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		row, ok := fv.selected()
		if !ok {
			return event
		}
		switch {
		case event.Key() == tcell.KeyEnter:
			switch row.kind {
			case rowFriend:
				fv.call(fv.onOpen, row.id)
			case rowIncoming:
				fv.call(fv.onAccept, row.id)
			case rowResult:
				fv.call(fv.onRequest, row.username)
			}
			return nil
		case event.Key() == tcell.KeyRune && event.Rune() == 'd' && row.kind == rowIncoming:
			fv.call(fv.onDecline, row.id)
			return nil
		case event.Key() == tcell.KeyRune && event.Rune() == 'c' && row.kind == rowOutgoing:
			fv.call(fv.onCancel, row.id)
			return nil
		case event.Key() == tcell.KeyRune && event.Rune() == 'x' && row.kind == rowFriend:
			fv.call(fv.onRemove, row.id)
			return nil
		}
		return event
	})

	fv.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(fv.search, 1, 0, true).
		AddItem(fv.table, 0, 1, false)

	return fv
}

func (fv *FriendsView) call(fn func(string), arg string) {
	if fn != nil {
		fn(arg)
	}
}

func (fv *FriendsView) selected() (friendRow, bool) {
	r, _ := fv.table.GetSelection()
	if r >= 0 && r < len(fv.rows) && fv.rows[r].kind != "" {
		return fv.rows[r], true
	}
	return friendRow{}, false
}

// Update rebuilds the table from the account view and the latest
// search results.
func (fv *FriendsView) Update(me *api.Me, results []api.SearchUser) {
	fv.table.Clear()
	fv.rows = fv.rows[:0]

	addHeader := func(label string) {
		fv.table.SetCell(len(fv.rows), 0, tview.NewTableCell("[::b]"+label).SetSelectable(false))
		fv.rows = append(fv.rows, friendRow{})
	}
	addRow := func(row friendRow, note string) {
		r := len(fv.rows)
		fv.table.SetCell(r, 0, tview.NewTableCell("  "+sanitizeForTerminal(row.username)).SetExpansion(1))
		fv.table.SetCell(r, 1, tview.NewTableCell("[::d]"+note))
		fv.rows = append(fv.rows, row)
	}

	if len(results) > 0 {
		addHeader("Search results")
		for _, u := range results {
			addRow(friendRow{kind: rowResult, id: u.ID, username: u.Username}, "Enter: send request")
		}
	}

	if me == nil {
		return
	}

	addHeader("Friends")
	for _, f := range me.Friends {
		addRow(friendRow{kind: rowFriend, id: f.FriendID, username: f.Username}, "Enter: open chat")
	}
	if len(me.IncomingRequests) > 0 {
		addHeader("Incoming requests")
		for _, r := range me.IncomingRequests {
			addRow(friendRow{kind: rowIncoming, id: r.SenderID, username: r.Username}, "Enter: accept  d: decline")
		}
	}
	if len(me.OutgoingRequests) > 0 {
		addHeader("Outgoing requests")
		for _, r := range me.OutgoingRequests {
			addRow(friendRow{kind: rowOutgoing, id: r.ReceiverID, username: r.Username}, "c: cancel")
		}
	}
}

// SetOnQuery sets the search query callback.
func (fv *FriendsView) SetOnQuery(fn func(query string)) { fv.onQuery = fn }

// SetOnOpen sets the open-chat callback for a friend.
func (fv *FriendsView) SetOnOpen(fn func(friendID string)) { fv.onOpen = fn }

// SetOnAccept sets the accept callback for an incoming request.
func (fv *FriendsView) SetOnAccept(fn func(senderID string)) { fv.onAccept = fn }

// SetOnDecline sets the decline callback for an incoming request.
func (fv *FriendsView) SetOnDecline(fn func(senderID string)) { fv.onDecline = fn }

// SetOnCancel sets the cancel callback for an outgoing request.
func (fv *FriendsView) SetOnCancel(fn func(receiverID string)) { fv.onCancel = fn }

// SetOnRemove sets the unfriend callback.
func (fv *FriendsView) SetOnRemove(fn func(friendID string)) { fv.onRemove = fn }

// SetOnRequest sets the send-request callback for a search result.
func (fv *FriendsView) SetOnRequest(fn func(username string)) { fv.onRequest = fn }

// Input exposes the search input for focus handling.
func (fv *FriendsView) Input() *tview.InputField { return fv.search }

// Table exposes the table for focus handling.
func (fv *FriendsView) Table() *tview.Table { return fv.table }
