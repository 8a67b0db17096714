package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/avolkov/tandem/internal/client/auth"
	"github.com/avolkov/tandem/internal/client/gateway"
)

// loginMode selects between the sign-in and sign-up variants of the form.
type loginMode int

const (
	modeSignIn loginMode = iota
	modeSignUp
)

const (
	fieldEmail = iota
	fieldPassword
	fieldFullName
)

// authResultMsg reports the outcome of a sign-in or sign-up attempt.
type authResultMsg struct {
	err    error
	signUp bool
}

// loginForm is the /auth view: email and password inputs, plus a full-name
// input in sign-up mode. Field validation beyond "non-empty" is left to the
// provider.
type loginForm struct {
	inputs []textinput.Model
	focus  int
	mode   loginMode
	busy   bool
	errMsg string
}

func newLoginForm() loginForm {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Width = 40
	email.Prompt = "> "
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 40
	password.Prompt = "> "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	fullName := textinput.New()
	fullName.Placeholder = "full name"
	fullName.CharLimit = 100
	fullName.Width = 40
	fullName.Prompt = "> "

	return loginForm{inputs: []textinput.Model{email, password, fullName}}
}

func (f loginForm) fieldCount() int {
	if f.mode == modeSignUp {
		return 3
	}
	return 2
}

func (f loginForm) update(msg tea.Msg, ctrl *auth.Controller) (loginForm, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && !f.busy {
		switch key.String() {
		case "tab", "down":
			f.setFocus((f.focus + 1) % f.fieldCount())
			return f, nil
		case "shift+tab", "up":
			f.setFocus((f.focus + f.fieldCount() - 1) % f.fieldCount())
			return f, nil
		case "ctrl+t":
			if f.mode == modeSignIn {
				f.mode = modeSignUp
			} else {
				f.mode = modeSignIn
			}
			if f.focus >= f.fieldCount() {
				f.setFocus(0)
			}
			f.errMsg = ""
			return f, nil
		case "enter":
			return f.submit(ctrl)
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *loginForm) setFocus(i int) {
	for n := range f.inputs {
		f.inputs[n].Blur()
	}
	f.focus = i
	f.inputs[i].Focus()
}

func (f loginForm) submit(ctrl *auth.Controller) (loginForm, tea.Cmd) {
	email := strings.TrimSpace(f.inputs[fieldEmail].Value())
	password := f.inputs[fieldPassword].Value()
	fullName := strings.TrimSpace(f.inputs[fieldFullName].Value())

	if email == "" || password == "" {
		f.errMsg = "email and password are required"
		return f, nil
	}
	if f.mode == modeSignUp && fullName == "" {
		f.errMsg = "full name is required"
		return f, nil
	}

	f.busy = true
	f.errMsg = ""
	signUp := f.mode == modeSignUp
	return f, func() tea.Msg {
		ctx := context.Background()
		var err error
		if signUp {
			err = ctrl.SignUp(ctx, gateway.SignUpRequest{
				Email:    email,
				Password: password,
				FullName: fullName,
			})
		} else {
			err = ctrl.SignIn(ctx, email, password)
		}
		return authResultMsg{err: err, signUp: signUp}
	}
}

func (f loginForm) view() string {
	var b strings.Builder

	switch f.mode {
	case modeSignUp:
		b.WriteString(titleStyle.Render("Create your account"))
	default:
		b.WriteString(titleStyle.Render("Welcome back"))
	}
	b.WriteString("\n")

	labels := []string{"Email", "Password", "Full name"}
	for i := 0; i < f.fieldCount(); i++ {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}

	if f.busy {
		b.WriteString(hintStyle.Render("Signing in..."))
		b.WriteString("\n")
	}
	if f.errMsg != "" {
		b.WriteString(errorStyle.Render(f.errMsg))
		b.WriteString("\n")
	}

	b.WriteString(navStyle.Render("enter submit · tab next field · ctrl+t switch sign-in/sign-up · ctrl+c quit"))
	return b.String()
}
