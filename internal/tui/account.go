package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"timesup/internal/app"
	apperrors "timesup/internal/errors"
)

type accountModel struct {
	ctx   context.Context
	state *app.State
	width int

	busy bool

	formActive   bool
	form         *huh.Form
	formEmail    *string
	formPassword *string
}

func newAccountModel(ctx context.Context, state *app.State) accountModel {
	var email, password string
	return accountModel{
		ctx:          ctx,
		state:        state,
		formEmail:    &email,
		formPassword: &password,
	}
}

func (a *accountModel) setSize(w, _ int) {
	a.width = w
}

func (a accountModel) update(msg tea.Msg) (accountModel, tea.Cmd) {
	if a.formActive && a.form != nil {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case signedInMsg, signedOutMsg:
		a.busy = false
	case statusMsg:
		if msg.isError {
			a.busy = false
		}
	case tea.KeyMsg:
		if a.busy {
			return a, nil
		}
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			if a.state.Owner() == "" {
				return a.showSignInForm()
			}
		case key.Matches(msg, keys.SignOut):
			if a.state.Owner() != "" {
				a.busy = true
				return a, a.signOut()
			}
		}
	}
	return a, nil
}

func (a accountModel) showSignInForm() (accountModel, tea.Cmd) {
	*a.formPassword = ""
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(a.formEmail).Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return errors.New("enter an email address")
				}
				return nil
			}),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(a.formPassword),
		),
	).WithShowHelp(true).WithShowErrors(true)

	a.formActive = true
	return a, a.form.Init()
}

func (a accountModel) updateForm(msg tea.Msg) (accountModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		a.formActive = false
		a.form = nil
		return a, nil
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}
	if a.form.State != huh.StateCompleted {
		return a, cmd
	}

	a.formActive = false
	a.form = nil
	a.busy = true
	return a, a.signIn(strings.TrimSpace(*a.formEmail), *a.formPassword)
}

func (a accountModel) signIn(email, password string) tea.Cmd {
	ctx, state := a.ctx, a.state
	return func() tea.Msg {
		user, err := state.SignIn(ctx, email, password)
		if err != nil {
			return statusMsg{text: signInError(err), isError: true}
		}
		return signedInMsg{user: user}
	}
}

func (a accountModel) signOut() tea.Cmd {
	ctx, state := a.ctx, a.state
	return func() tea.Msg {
		if err := state.SignOut(ctx); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		return signedOutMsg{}
	}
}

func signInError(err error) string {
	if errors.Is(err, app.ErrOffline) {
		return "Offline mode: set server_url in the config to sign in"
	}
	if apiErr, ok := apperrors.From(err); ok {
		return "Sign in failed: " + apiErr.Message
	}
	return "Sign in failed: " + err.Error()
}

func (a accountModel) view() string {
	w := a.width - 4
	if a.formActive && a.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Sign In"), "", a.form.View()),
		)
	}

	var rows []string
	switch {
	case a.busy:
		rows = append(rows, mutedStyle.Render("Working..."))
	case a.state.Owner() != "":
		rows = append(rows,
			successStyle.Render("Signed in as "+a.state.Email()),
			"",
			mutedStyle.Render("Alarms are stored in your account."),
			mutedStyle.Render("Completed sessions are added to your history."),
			"",
			mutedStyle.Render("o: sign out"),
		)
	default:
		rows = append(rows,
			warningStyle.Render("Not signed in"),
			"",
			mutedStyle.Render("Alarms are stored on this device only."),
			mutedStyle.Render("Signing in moves them into your account."),
			"",
			mutedStyle.Render("enter: sign in"),
		)
	}

	alarms := a.state.Alarms.Snapshot()
	rows = append(rows, "", mutedStyle.Render(fmt.Sprintf("%d alarms loaded", len(alarms))))

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render("Account"), ""}, rows...)...),
	)
}
