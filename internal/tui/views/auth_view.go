package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/matheus3301/tele/internal/auth"
	"github.com/matheus3301/tele/internal/tui/ui"
)

type authField struct {
	label  string
	secret bool
}

// fields lists the inputs each state asks for.
var fields = map[auth.State][]authField{
	auth.AwaitingCredentials:  {{label: "API ID"}, {label: "API Hash", secret: true}},
	auth.AwaitingPhone:        {{label: "Phone"}},
	auth.AwaitingCode:         {{label: "Code"}},
	auth.AwaitingSecondFactor: {{label: "Password", secret: true}},
}

// AuthView walks the user through the login sequence.
type AuthView struct {
	*tview.Flex
	theme    *ui.Theme
	message  *tview.TextView
	form     *tview.Form
	state    auth.State
	built    bool
	onSubmit func(state auth.State, values []string)
}

// NewAuthView creates an empty auth view.
func NewAuthView(theme *ui.Theme) *AuthView {
	message := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	message.SetBackgroundColor(theme.BgColor)
	message.SetTextColor(theme.FgColor)

	form := tview.NewForm()
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.BorderColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(message, 4, 0, false).
		AddItem(form, 0, 1, true)
	flex.SetBorder(true)
	flex.SetBorderColor(theme.BorderColor)
	flex.SetBackgroundColor(theme.BgColor)
	flex.SetTitle(" Log in to Telegram ")
	flex.SetTitleColor(theme.TitleColor)

	return &AuthView{
		Flex:    flex,
		theme:   theme,
		message: message,
		form:    form,
	}
}

// Name implements ui.Component.
func (av *AuthView) Name() string { return "auth" }

// SetOnSubmit sets the callback for the form's button. values follow the
// field order of state; states without fields submit none.
func (av *AuthView) SetOnSubmit(fn func(state auth.State, values []string)) {
	av.onSubmit = fn
}

// Form returns the input form, for focus.
func (av *AuthView) Form() *tview.Form {
	return av.form
}

// Update shows s. The form is rebuilt only when the state changes, so
// typed input survives pending and message updates.
func (av *AuthView) Update(s auth.Snapshot) {
	av.message.Clear()
	msg := s.Message
	if msg == "" {
		msg = defaultMessage(s.State)
	}
	_, _ = fmt.Fprintf(av.message, "\n%s", tview.Escape(msg))
	if s.Pending {
		_, _ = fmt.Fprint(av.message, "\n[::d]Waiting for Telegram…[-:-:-]")
	}

	if av.built && s.State == av.state {
		return
	}
	av.state = s.State
	av.built = true
	av.form.Clear(true)
	for _, f := range fields[s.State] {
		value := ""
		if s.State == auth.AwaitingCredentials && f.label == "API ID" {
			value = s.APIID
		}
		if f.secret {
			av.form.AddPasswordField(f.label, value, 40, '*', nil)
		} else {
			av.form.AddInputField(f.label, value, 40, nil, nil)
		}
	}
	switch {
	case len(fields[s.State]) > 0:
		av.form.AddButton("Submit", av.submit)
	case s.State == auth.Closed, s.State == auth.Uninitialized:
		av.form.AddButton("Retry", av.submit)
	}
}

// Values returns the current field texts.
func (av *AuthView) Values() []string {
	var values []string
	for i := 0; i < av.form.GetFormItemCount(); i++ {
		if in, ok := av.form.GetFormItem(i).(*tview.InputField); ok {
			values = append(values, in.GetText())
		}
	}
	return values
}

func (av *AuthView) submit() {
	if av.onSubmit != nil {
		av.onSubmit(av.state, av.Values())
	}
}

func defaultMessage(s auth.State) string {
	switch s {
	case auth.Uninitialized:
		return "Connecting to Telegram…"
	case auth.AwaitingCredentials:
		return auth.MsgEnterCredentials
	case auth.AwaitingPhone:
		return auth.MsgEnterPhone
	case auth.AwaitingCode:
		return auth.MsgEnterCode
	case auth.AwaitingSecondFactor:
		return auth.MsgEnterPassword
	case auth.Authorized:
		return "Logged in"
	case auth.LoggingOut:
		return auth.MsgLoggingOut
	case auth.Closing:
		return auth.MsgClosing
	default:
		return auth.MsgClosed
	}
}
