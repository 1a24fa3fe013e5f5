package views

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cove-chat/cove/internal/api"
)

// AccountView shows the logged-in profile along with a scannable
// friend code other clients can use to send a request.
type AccountView struct {
	*tview.TextView
}

// NewAccountView creates the account page.
func NewAccountView() *AccountView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true).SetTitle(" Account ")

	return &AccountView{TextView: tv}
}

// Update re-renders the account page.
func (av *AccountView) Update(me *api.Me) {
	av.Clear()
	if me == nil {
		_, _ = fmt.Fprint(av, "\n\nNot signed in")
		return
	}

	code := "cove://add/" + me.Profile.Username
	_, _ = fmt.Fprintf(av,
		"\n[::b]%s[-:-:-]\n%s\n\nFriends: %d   Incoming: %d   Outgoing: %d\n\n  Friend code:\n\n%s",
		sanitizeForTerminal(me.Profile.Username),
		me.Auth.Email,
		len(me.Friends), len(me.IncomingRequests), len(me.OutgoingRequests),
		renderQR(code))
}

// renderQR converts a string to a compact ASCII QR code using Unicode
// half-block characters.
func renderQR(content string) string {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}

	bitmap := qr.Bitmap()
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder

	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := false
			if y+1 < rows {
				bot = bitmap[y+1][x]
			}
			switch {
			case top && bot:
				sb.WriteRune('█') // █
			case top && !bot:
				sb.WriteRune('▀') // ▀
			case !top && bot:
				sb.WriteRune('▄') // ▄
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}

	return sb.String()
}
