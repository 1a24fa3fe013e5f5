// Package tui is the terminal user interface shell. All widget
// mutations funnel through QueueUpdateDraw; background work happens in
// goroutines fed by the bus and the HTTP client.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/cove-chat/cove/internal/api"
	"github.com/cove-chat/cove/internal/bus"
	"github.com/cove-chat/cove/internal/chat"
	"github.com/cove-chat/cove/internal/config"
	"github.com/cove-chat/cove/internal/realtime"
	"github.com/cove-chat/cove/internal/session"
	"github.com/cove-chat/cove/internal/status"
	"github.com/cove-chat/cove/internal/store"
	"github.com/cove-chat/cove/internal/tui/keys"
	"github.com/cove-chat/cove/internal/tui/model"
	"github.com/cove-chat/cove/internal/tui/views"
)

// Deps carries everything the TUI shell needs.
type Deps struct {
	Client  *api.Client
	Tokens  *session.TokenStore
	DB      *store.DB
	Bus     *bus.Bus
	Machine *status.Machine
	Guard   *chat.Guard
	Config  *config.Config
	Logger  *zap.Logger
	Account string
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *tview.Pages
	vm       *model.ViewModel
	registry *keys.Registry

	statusBar *views.StatusBar
	convList  *views.ConversationList
	msgView   *views.MessageView
	typingBar *views.TypingBar
	composer  *views.Composer
	friendsV  *views.FriendsView
	authView  *views.AuthView
	accountV  *views.AccountView

	deps     Deps
	deviceID string
	screen   tcell.Screen

	connMu sync.Mutex
	conn   *realtime.Conn

	// ctrlMu also guards openSeq, which orders conversation opens so a
	// slow open cannot install its controller after a later open or
	// close already won.
	ctrlMu  sync.Mutex
	ctrl    *chat.Controller
	openSeq uint64

	searchCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(deps Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		vm:        model.NewViewModel(deps.Client, deps.DB),
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(),
		convList:  views.NewConversationList(),
		msgView:   views.NewMessageView(),
		typingBar: views.NewTypingBar(),
		composer:  views.NewComposer(),
		friendsV:  views.NewFriendsView(),
		authView:  views.NewAuthView(),
		accountV:  views.NewAccountView(),
		deps:      deps,
		deviceID:  session.NewDeviceID(),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.statusBar.SetAccount(deps.Account)
	a.statusBar.SetStatus(string(deps.Machine.Current()))
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal("quit", &keys.Action{
		Rune: 'q', Key: tcell.KeyRune,
		Description: "q:quit", Visible: true,
		Handler: func() { a.Stop() },
	})
	a.registry.AddGlobal("friends", &keys.Action{
		Rune: 'f', Key: tcell.KeyRune,
		Description: "f:friends", Visible: true,
		Handler: func() { a.showFriends() },
	})
	a.registry.AddGlobal("account", &keys.Action{
		Rune: 'a', Key: tcell.KeyRune,
		Description: "a:account", Visible: true,
		Handler: func() { a.showAccount() },
	})
	a.registry.AddView("account", "logout", &keys.Action{
		Rune: 'L', Key: tcell.KeyRune,
		Description: "L:logout", Visible: true,
		Handler: func() { a.logout() },
	})
}

func (a *App) setupCallbacks() {
	a.convList.SetSelectedFunc(func(row, col int) {
		if item, ok := a.convList.Selected(); ok {
			a.openConversation(item.ID, item.PeerUsername)
		}
	})

	a.composer.SetOnSend(a.sendMessage)
	a.composer.SetOnInput(func() {
		if ctrl := a.controller(); ctrl != nil {
			ctrl.OnInput()
		}
	})
	a.composer.SetOnBlur(func() {
		if ctrl := a.controller(); ctrl != nil {
			ctrl.OnBlur()
		}
	})

	a.authView.SetOnLogin(a.login)
	a.authView.SetOnRegister(a.register)

	a.friendsV.SetOnQuery(a.runSearch)
	a.friendsV.SetOnOpen(func(friendID string) {
		go func() {
			id, err := a.vm.OpenDirect(a.ctx, friendID)
			if err != nil {
				a.flash("Open failed: " + err.Error())
				return
			}
			a.openConversation(id, "")
		}()
	})
	a.friendsV.SetOnRequest(func(username string) {
		a.friendAction(func(ctx context.Context) error {
			_, err := a.deps.Client.SendFriendRequest(ctx, username)
			return err
		}, "Request sent")
	})
	a.friendsV.SetOnAccept(func(senderID string) {
		a.friendAction(func(ctx context.Context) error {
			_, err := a.deps.Client.AcceptFriendRequest(ctx, senderID)
			return err
		}, "Request accepted")
	})
	a.friendsV.SetOnDecline(func(senderID string) {
		a.friendAction(func(ctx context.Context) error {
			_, err := a.deps.Client.DeclineFriendRequest(ctx, senderID)
			return err
		}, "Request declined")
	})
	a.friendsV.SetOnCancel(func(receiverID string) {
		a.friendAction(func(ctx context.Context) error {
			_, err := a.deps.Client.CancelFriendRequest(ctx, receiverID)
			return err
		}, "Request canceled")
	})
	a.friendsV.SetOnRemove(func(friendID string) {
		a.friendAction(func(ctx context.Context) error {
			_, err := a.deps.Client.RemoveFriend(ctx, friendID)
			return err
		}, "Friend removed")
	})
}

func (a *App) setupLayout() {
	chatFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.msgView, 0, 1, false).
		AddItem(a.typingBar, 1, 0, false).
		AddItem(a.composer, 1, 0, true)

	a.pages.AddPage("auth", a.authView, true, true)
	a.pages.AddPage("conversations", a.convList, true, false)
	a.pages.AddPage("chat", chatFlex, true, false)
	a.pages.AddPage("friends", a.friendsV, true, false)
	a.pages.AddPage("account", a.accountV, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		a.screen = screen
		return false
	})

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		currentPage, _ := a.pages.GetFrontPage()

		if event.Key() == tcell.KeyEscape {
			switch currentPage {
			case "chat":
				a.closeConversation()
				a.showConversations()
				return nil
			case "friends", "account":
				a.showConversations()
				return nil
			}
		}

		// Let text input widgets handle all keys normally.
		focused := a.app.GetFocus()
		if _, ok := focused.(*tview.InputField); ok {
			return event
		}

		// 'i' focuses the composer (only when not already in an input field).
		if currentPage == "chat" && event.Key() == tcell.KeyRune && event.Rune() == 'i' {
			a.app.SetFocus(a.composer.InputField)
			return nil
		}
		// '/' focuses the friends search.
		if currentPage == "friends" && event.Key() == tcell.KeyRune && event.Rune() == '/' {
			a.app.SetFocus(a.friendsV.Input())
			return nil
		}

		if currentPage != "auth" && a.registry.HandleEvent(currentPage, event) {
			return nil
		}

		return event
	})
}

// Run starts the TUI application.
func (a *App) Run() error {
	go a.consumeBus()
	go a.bootstrap()
	return a.app.Run()
}

// bootstrap decides between the auth page and the main flow based on
// whether the stored session still works.
func (a *App) bootstrap() {
	err := a.vm.LoadMe(a.ctx)
	if err != nil {
		a.transition(status.AuthRequired)
		a.app.QueueUpdateDraw(func() {
			a.pages.SwitchToPage("auth")
			a.app.SetFocus(a.authView.Form())
			if !errors.Is(err, api.ErrSessionExpired) {
				a.authView.ShowMessage("Sign in to continue")
			}
		})
		return
	}
	a.afterAuth()
}

func (a *App) login(email, password string) {
	go func() {
		_, err := a.deps.Client.Login(a.ctx, &api.LoginRequest{Email: email, Password: password})
		if err != nil {
			a.app.QueueUpdateDraw(func() { a.authView.ShowMessage("Login failed: " + err.Error()) })
			return
		}
		if err := a.vm.LoadMe(a.ctx); err != nil {
			a.app.QueueUpdateDraw(func() { a.authView.ShowMessage("Load failed: " + err.Error()) })
			return
		}
		a.afterAuth()
	}()
}

func (a *App) register(email, username, password string) {
	go func() {
		_, err := a.deps.Client.Register(a.ctx, &api.RegisterRequest{Email: email, Username: username, Password: password})
		if err != nil {
			a.app.QueueUpdateDraw(func() { a.authView.ShowMessage("Register failed: " + err.Error()) })
			return
		}
		a.app.QueueUpdateDraw(func() { a.authView.ShowMessage("Registered. Sign in with your new account.") })
	}()
}

// afterAuth connects the realtime socket and lands on the
// conversation list.
func (a *App) afterAuth() {
	a.transition(status.Connecting)
	a.deps.Bus.Publish(bus.Event{Kind: bus.KindSessionAuthenticated, Timestamp: time.Now(), Payload: a.vm.UserID()})

	token, err := a.deps.Tokens.Load()
	if err != nil {
		a.deps.Logger.Warn("token load failed", zap.Error(err))
	}

	conn := realtime.NewConn(a.deps.Config.RealtimeURL, token, a.deviceID, a.deps.Bus, a.deps.Logger)
	conn.OnStateChange(a.onConnState)
	if err := conn.Connect(a.ctx); err != nil {
		a.deps.Logger.Warn("realtime connect failed", zap.Error(err))
		a.flash("Realtime unavailable: " + err.Error())
	}
	a.setConn(conn)

	a.msgView.SetLocalUser(a.vm.UserID())

	if err := a.vm.LoadConversations(a.ctx); err != nil {
		a.flash("Load failed: " + err.Error())
	}

	a.app.QueueUpdateDraw(func() {
		a.convList.Update(a.vm.Conversations())
		a.showConversations()
	})
	a.startRefreshLoop()
}

func (a *App) onConnState(s realtime.State) {
	switch s {
	case realtime.StateConnected:
		a.transition(status.Ready)
	case realtime.StateReconnecting:
		a.transition(status.Reconnecting)
	case realtime.StateDisconnected:
		a.transition(status.Error)
	}
}

func (a *App) transition(to status.State) {
	if err := a.deps.Machine.Transition(to); err != nil {
		a.deps.Logger.Debug("status transition rejected", zap.Error(err))
	}
}

// consumeBus routes engine events into widget updates.
func (a *App) consumeBus() {
	events, unsub := a.deps.Bus.Subscribe("", 128)
	defer unsub()

	for {
		select {
		case <-a.ctx.Done():
			return
		case evt := <-events:
			a.handleBusEvent(evt)
		}
	}
}

func (a *App) handleBusEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageAppended, bus.KindMessageConfirmed:
		upd, ok := evt.Payload.(chat.TimelineUpdate)
		ctrl := a.controller()
		if !ok || ctrl == nil || upd.ConversationID != ctrl.ConversationID() {
			return
		}
		msgs := ctrl.Messages()
		a.app.QueueUpdateDraw(func() { a.msgView.Update(msgs) })
	case bus.KindMessageRolledBack:
		upd, ok := evt.Payload.(chat.RollbackUpdate)
		ctrl := a.controller()
		if !ok || ctrl == nil || upd.ConversationID != ctrl.ConversationID() {
			return
		}
		msgs := ctrl.Messages()
		a.app.QueueUpdateDraw(func() {
			a.msgView.Update(msgs)
			a.composer.SetTextQuiet(upd.Content)
			a.statusBar.SetFlash("Send failed, message restored")
		})
	case bus.KindTypingChanged:
		upd, ok := evt.Payload.(chat.TypingUpdate)
		ctrl := a.controller()
		if !ok || ctrl == nil || upd.ConversationID != ctrl.ConversationID() {
			return
		}
		line := ctrl.TypingLine()
		a.app.QueueUpdateDraw(func() { a.typingBar.SetLine(line) })
	case bus.KindStatusChanged:
		change, ok := evt.Payload.(status.StatusChange)
		if !ok {
			return
		}
		a.app.QueueUpdateDraw(func() { a.statusBar.SetStatus(string(change.To)) })
	case bus.KindSessionExpired:
		a.app.QueueUpdateDraw(func() {
			a.closeConversation()
			a.pages.SwitchToPage("auth")
			a.authView.ShowMessage("Session expired, sign in again")
			a.app.SetFocus(a.authView.Form())
		})
		a.transition(status.AuthRequired)
	}
}

func (a *App) controller() *chat.Controller {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	return a.ctrl
}

// beginOpen tears down the current controller and claims a new open
// generation. The returned value must be handed to installController.
func (a *App) beginOpen() uint64 {
	a.ctrlMu.Lock()
	ctrl := a.ctrl
	a.ctrl = nil
	a.openSeq++
	seq := a.openSeq
	a.ctrlMu.Unlock()
	if ctrl != nil {
		ctrl.Close()
	}
	return seq
}

// installController publishes a started controller unless a later open
// or close superseded this one.
func (a *App) installController(seq uint64, ctrl *chat.Controller) bool {
	a.ctrlMu.Lock()
	defer a.ctrlMu.Unlock()
	if seq != a.openSeq {
		return false
	}
	a.ctrl = ctrl
	return true
}

func (a *App) setConn(c *realtime.Conn) {
	a.connMu.Lock()
	a.conn = c
	a.connMu.Unlock()
}

func (a *App) getConn() *realtime.Conn {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	return a.conn
}

// openConversation joins the realtime channel, builds the
// conversation controller and switches to the chat page.
func (a *App) openConversation(conversationID, peerName string) {
	go func() {
		seq := a.beginOpen()

		cached := a.vm.CachedMessages(conversationID)
		a.app.QueueUpdateDraw(func() {
			if peerName != "" {
				a.msgView.SetPeerName(peerName)
			}
			a.msgView.Update(cached)
			a.typingBar.SetLine("")
			a.pages.SwitchToPage("chat")
			a.app.SetFocus(a.composer.InputField)
		})

		var transport chat.Transport
		if conn := a.getConn(); conn != nil {
			ch, err := conn.Join(a.ctx, conversationID)
			if err != nil {
				a.flash("Realtime join failed: " + err.Error())
				transport = noTransport{}
			} else {
				transport = ch
			}
		} else {
			transport = noTransport{}
		}

		ctrl := chat.NewController(chat.ControllerConfig{
			ConversationID: conversationID,
			LocalUserID:    a.vm.UserID(),
			LocalUsername:  a.vm.Username(),
			API:            a.deps.Client,
			Transport:      transport,
			Bus:            a.deps.Bus,
			Guard:          a.deps.Guard,
			Notify:         a.notify,
			Debounce:       a.deps.Config.TypingDebounce(),
			Logger:         a.deps.Logger,
		})
		if err := ctrl.Start(a.ctx); err != nil {
			a.flash("Load failed: " + err.Error())
			ctrl.Close()
			return
		}
		if !a.installController(seq, ctrl) {
			ctrl.Close()
			return
		}

		msgs := ctrl.Messages()
		a.app.QueueUpdateDraw(func() { a.msgView.Update(msgs) })
	}()
}

func (a *App) closeConversation() {
	a.ctrlMu.Lock()
	ctrl := a.ctrl
	a.ctrl = nil
	a.openSeq++
	a.ctrlMu.Unlock()
	if ctrl != nil {
		ctrl.Close()
	}
}

func (a *App) sendMessage(text string) {
	ctrl := a.controller()
	if ctrl == nil {
		return
	}
	a.composer.SetTextQuiet("")
	go func() {
		restored, err := ctrl.Send(a.ctx, text)
		if err == nil {
			return
		}
		a.app.QueueUpdateDraw(func() {
			switch {
			case errors.Is(err, chat.ErrSendInFlight):
				a.composer.SetTextQuiet(text)
				a.statusBar.SetFlash("Still sending the previous message")
			case errors.Is(err, chat.ErrEmptyMessage):
			default:
				// Rollback already restored via the bus event; keep the
				// content even if that event was dropped.
				if restored != "" && a.composer.GetText() == "" {
					a.composer.SetTextQuiet(restored)
				}
			}
		})
	}()
}

// notify is the new-message callback bound to the terminal: a flash
// line plus the bell when enabled.
func (a *App) notify(m chat.Message) {
	a.app.QueueUpdateDraw(func() {
		from := m.SenderName
		if from == "" {
			from = m.SenderID
		}
		a.statusBar.SetFlash("New message from " + from)
		if a.deps.Config.NotifySound && a.screen != nil {
			a.screen.Beep()
		}
	})
}

func (a *App) runSearch(query string) {
	if a.searchCancel != nil {
		a.searchCancel()
	}
	ctx, cancel := context.WithCancel(a.ctx)
	a.searchCancel = cancel

	go func() {
		if err := a.vm.Search(ctx, query); err != nil {
			if ctx.Err() == nil {
				a.flash("Search failed: " + err.Error())
			}
			return
		}
		me := a.vm.Me()
		results := a.vm.SearchResults()
		a.app.QueueUpdateDraw(func() { a.friendsV.Update(me, results) })
	}()
}

// friendAction runs a friend-graph mutation and refreshes the page.
func (a *App) friendAction(fn func(ctx context.Context) error, done string) {
	go func() {
		if err := fn(a.ctx); err != nil {
			a.flash("Action failed: " + err.Error())
			return
		}
		if err := a.vm.LoadMe(a.ctx); err != nil {
			a.deps.Logger.Warn("reload after friend action failed", zap.Error(err))
		}
		me := a.vm.Me()
		results := a.vm.SearchResults()
		a.app.QueueUpdateDraw(func() {
			a.friendsV.Update(me, results)
			a.statusBar.SetFlash(done)
		})
	}()
}

// logout ends the session everywhere: server, token file, realtime
// socket, and lands back on the auth page.
func (a *App) logout() {
	go func() {
		if err := a.deps.Client.Logout(a.ctx); err != nil {
			a.deps.Logger.Warn("logout failed", zap.Error(err))
		}
		a.closeConversation()
		if conn := a.getConn(); conn != nil {
			_ = conn.Close()
			a.setConn(nil)
		}
		a.transition(status.AuthRequired)
		a.app.QueueUpdateDraw(func() {
			a.pages.SwitchToPage("auth")
			a.authView.ShowMessage("Logged out")
			a.app.SetFocus(a.authView.Form())
		})
	}()
}

func (a *App) showConversations() {
	a.pages.SwitchToPage("conversations")
	a.app.SetFocus(a.convList)
}

func (a *App) showFriends() {
	me := a.vm.Me()
	a.friendsV.Update(me, a.vm.SearchResults())
	a.pages.SwitchToPage("friends")
	a.app.SetFocus(a.friendsV.Table())
}

func (a *App) showAccount() {
	a.accountV.Update(a.vm.Me())
	a.pages.SwitchToPage("account")
}

func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = a.vm.LoadConversations(a.ctx)
				a.app.QueueUpdateDraw(func() {
					currentPage, _ := a.pages.GetFrontPage()
					if currentPage == "conversations" {
						a.convList.Update(a.vm.Conversations())
					}
					a.statusBar.SetFlash(a.vm.Flash.Get())
				})
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

func (a *App) flash(msg string) {
	a.vm.Flash.Set(msg)
	a.app.QueueUpdateDraw(func() { a.statusBar.SetFlash(msg) })
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.closeConversation()
	if conn := a.getConn(); conn != nil {
		_ = conn.Close()
	}
	a.app.Stop()
}

// noTransport keeps a conversation usable over plain HTTP when the
// realtime socket is down: typing and broadcasts become no-ops.
type noTransport struct{}

func (noTransport) Track(userID, username string, typing bool) error  { return nil }
func (noTransport) BroadcastMessage(evt *realtime.MessageEvent) error { return nil }
func (noTransport) Close()                                            {}
