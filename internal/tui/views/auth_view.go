package views

import (
	"fmt"

	"github.com/rivo/tview"
)

// AuthView is the login/register form shown while no session exists.
type AuthView struct {
	*tview.Flex
	form *tview.Form
	msg  *tview.TextView

	onLogin    func(email, password string)
	onRegister func(email, username, password string)
}

// NewAuthView creates the auth form.
func NewAuthView() *AuthView {
	av := &AuthView{
		form: tview.NewForm(),
		msg:  tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
	}

	av.form.
		AddInputField("Email", "", 40, nil, nil).
		AddInputField("Username (register only)", "", 40, nil, nil).
		AddPasswordField("Password", "", 40, '*', nil).
		AddButton("Login", func() {
			if av.onLogin != nil {
				av.onLogin(av.field(0), av.field(2))
			}
		}).
		AddButton("Register", func() {
			if av.onRegister != nil {
				av.onRegister(av.field(0), av.field(1), av.field(2))
			}
		})
	av.form.SetBorder(true).SetTitle(" Sign in ")

	av.Flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(av.form, 0, 3, true).
		AddItem(av.msg, 3, 0, false)

	return av
}

func (av *AuthView) field(i int) string {
	return av.form.GetFormItem(i).(*tview.InputField).GetText()
}

// SetOnLogin sets the login callback.
func (av *AuthView) SetOnLogin(fn func(email, password string)) {
	av.onLogin = fn
}

// SetOnRegister sets the register callback.
func (av *AuthView) SetOnRegister(fn func(email, username, password string)) {
	av.onRegister = fn
}

// ShowMessage displays a status or error line under the form.
func (av *AuthView) ShowMessage(msg string) {
	av.msg.Clear()
	_, _ = fmt.Fprintf(av.msg, "[yellow]%s[-]", msg)
}

// Form exposes the form for focus handling.
func (av *AuthView) Form() *tview.Form {
	return av.form
}
