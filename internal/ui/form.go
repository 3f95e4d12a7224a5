package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// authForm collects an email and password for sign-in or sign-up.
type authForm struct {
	email    textinput.Model
	password textinput.Model
	signUp   bool
	focus    int
	pending  bool
	err      error
}

func newAuthForm() authForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    › "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password › "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128

	f := authForm{email: email, password: password}
	f.email.Focus()
	return f
}

func (f authForm) mode() string {
	if f.signUp {
		return "Sign Up"
	}
	return "Sign In"
}

func (f authForm) values() (string, string) {
	return strings.TrimSpace(f.email.Value()), f.password.Value()
}

// next moves focus to the other field. It reports true when focus was on the
// password field, meaning the form should be submitted.
func (f *authForm) next() bool {
	if f.focus == 1 {
		return true
	}
	f.focus = 1
	f.email.Blur()
	f.password.Focus()
	return false
}

func (f *authForm) prev() {
	f.focus = 0
	f.password.Blur()
	f.email.Focus()
}

func (f *authForm) reset() {
	f.email.SetValue("")
	f.password.SetValue("")
	f.pending = false
	f.err = nil
	f.prev()
}

func (f authForm) update(msg tea.Msg) (authForm, tea.Cmd) {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return f, cmd
}

func (f authForm) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.mode()))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n%s\n\n", f.email.View(), f.password.View())

	switch {
	case f.pending:
		b.WriteString(styles.help.Render("Working..."))
	case f.err != nil:
		b.WriteString(styles.err.Render(authErrorText(f.err)))
	}
	return b.String()
}
