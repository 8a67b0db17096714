// Package ui is the terminal view layer. It owns navigation: every tick it
// asks the route evaluator what the current path may render and performs
// the returned decision — switching views, showing the loading spinner, or
// bouncing to the login page.
package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avolkov/tandem/internal/client/auth"
	"github.com/avolkov/tandem/internal/client/route"
	"github.com/avolkov/tandem/internal/client/services"
	"github.com/avolkov/tandem/internal/common"
	"github.com/avolkov/tandem/internal/logging"
)

// evalInterval is how often the app re-evaluates the current route against
// the session store and timeout guard.
const evalInterval = 100 * time.Millisecond

type (
	tickMsg          time.Time
	initDoneMsg      struct{}
	signOutResultMsg struct{ err error }
	onboardResultMsg struct{ err error }
	probeResultMsg   struct{ complete bool }
)

// App is the root bubbletea model.
type App struct {
	ctrl       *auth.Controller
	guard      *auth.Guard
	stash      *route.Stash
	profiles   *services.ProfileService
	onboarding *services.OnboardingService
	log        logging.Logger

	initTimeout time.Duration

	path     string
	decision route.Decision

	login   loginForm
	spinner spinner.Model

	onboardingHint string
	status         string

	width    int
	height   int
	quitting bool
}

// NewApp wires the root model. A nil controller means the caller skipped
// the session-provider wiring entirely; that is a programming error and
// surfaces as common.ErrAuthBoundary rather than a broken UI later.
func NewApp(ctrl *auth.Controller, guard *auth.Guard, stash *route.Stash,
	profiles *services.ProfileService, onboarding *services.OnboardingService,
	initTimeout time.Duration, log logging.Logger) (*App, error) {

	if ctrl == nil {
		return nil, common.ErrAuthBoundary
	}
	if guard == nil {
		guard = auth.NewGuard()
	}
	if stash == nil {
		stash = &route.Stash{}
	}
	if log == nil {
		log = logging.Nop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &App{
		ctrl:        ctrl,
		guard:       guard,
		stash:       stash,
		profiles:    profiles,
		onboarding:  onboarding,
		log:         log.With("component", "ui"),
		initTimeout: initTimeout,
		path:        route.HomePath,
		decision:    route.Decision{Kind: route.Loading},
		login:       newLoginForm(),
		spinner:     sp,
	}, nil
}

func (a *App) Init() tea.Cmd {
	a.guard.StartWaiting(a.initTimeout)
	a.evaluate()
	return tea.Batch(a.spinner.Tick, textinput.Blink, doTick(), a.initCmd())
}

func doTick() tea.Cmd {
	return tea.Tick(evalInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// initCmd runs session initialization off the UI loop and then attaches
// the change subscriber for the rest of the process lifetime.
func (a *App) initCmd() tea.Cmd {
	return func() tea.Msg {
		a.ctrl.Initialize(context.Background())
		a.ctrl.Start()
		return initDoneMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case tickMsg:
		a.evaluate()
		return a, doTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case initDoneMsg:
		a.evaluate()
		return a, a.probeCmd()

	case authResultMsg:
		return a.updateAuthResult(msg)

	case signOutResultMsg:
		if msg.err != nil {
			a.status = "Sign-out failed: " + msg.err.Error()
		}
		a.evaluate()
		return a, nil

	case onboardResultMsg:
		if msg.err != nil {
			a.status = "Could not complete onboarding, try again."
		} else {
			a.status = ""
			a.onboardingHint = ""
		}
		a.evaluate()
		return a, nil

	case probeResultMsg:
		if !msg.complete {
			a.onboardingHint = "Finish setting up your shared space to unlock journeys."
		}
		return a, nil
	}

	if a.path == route.LoginPath {
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg, a.ctrl)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.quitting = true
		return a, tea.Quit
	}

	// The login page owns the keyboard while it is showing.
	if a.path == route.LoginPath {
		var cmd tea.Cmd
		a.login, cmd = a.login.update(msg, a.ctrl)
		return a, cmd
	}

	switch msg.String() {
	case "q":
		a.quitting = true
		return a, tea.Quit
	case "1":
		a.navigate(route.HomePath)
	case "2":
		a.navigate("/quiz")
	case "3":
		a.navigate(route.OnboardingPath)
	case "4":
		a.navigate("/settings")
	case "5":
		a.navigate("/admin")
	case "enter":
		switch a.path {
		case "/settings":
			return a, a.signOutCmd()
		case route.OnboardingPath:
			return a, a.completeOnboardingCmd()
		}
	}
	return a, nil
}

func (a *App) updateAuthResult(msg authResultMsg) (tea.Model, tea.Cmd) {
	a.login.busy = false

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, common.ErrInvalidCredentials):
			a.login.errMsg = "Invalid email or password."
		case errors.Is(msg.err, common.ErrNetwork):
			a.login.errMsg = "Cannot reach the server. Try again."
		default:
			a.login.errMsg = msg.err.Error()
		}
		return a, nil
	}

	if msg.signUp && !a.ctrl.Snapshot().Authenticated() {
		a.login.errMsg = "Account created. Check your email to confirm."
		return a, nil
	}

	// Return to the page the user originally asked for, if any.
	if target, ok := a.stash.Take(); ok && target != route.LoginPath {
		a.path = target
	} else {
		a.path = route.HomePath
	}
	a.evaluate()
	return a, a.probeCmd()
}

func (a *App) navigate(path string) {
	if _, ok := views[path]; !ok {
		return
	}
	a.path = path
	a.status = ""
	a.evaluate()
}

// evaluate applies the access decision for the current path, following
// redirects to a fixed point. The login path is public, so every redirect
// chain terminates.
func (a *App) evaluate() {
	v, ok := views[a.path]
	if !ok {
		a.path = route.HomePath
		v = views[a.path]
	}
	if !v.req.RequiresAuth {
		a.decision = route.Decision{Kind: route.Render}
		return
	}

	snap := a.ctrl.Snapshot()
	if snap.Initialized {
		a.guard.Resolve()
	}

	for range views {
		d := route.Evaluate(snap, a.guard.State(), v.req, a.path, a.stash)
		if d.Kind != route.Redirect {
			a.decision = d
			return
		}
		a.log.Debug(context.Background(), "redirect", "from", a.path, "to", d.Target)
		a.path = d.Target
		v = views[a.path]
		if !v.req.RequiresAuth {
			a.decision = route.Decision{Kind: route.Render}
			return
		}
	}
	a.decision = route.Decision{Kind: route.Render}
}

// probeCmd kicks off the best-effort onboarding hint lookup. It never
// gates navigation; it only feeds the dashboard hint line.
func (a *App) probeCmd() tea.Cmd {
	if a.onboarding == nil {
		return nil
	}
	snap := a.ctrl.Snapshot()
	if snap.User == nil || snap.IsOnboarded {
		return nil
	}
	id := snap.User.ID
	return func() tea.Msg {
		return probeResultMsg{complete: a.onboarding.HasCompletedOnboarding(context.Background(), id)}
	}
}

func (a *App) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		return signOutResultMsg{err: a.ctrl.SignOut(context.Background())}
	}
}

func (a *App) completeOnboardingCmd() tea.Cmd {
	snap := a.ctrl.Snapshot()
	if a.profiles == nil || snap.User == nil {
		return nil
	}
	id := snap.User.ID
	return func() tea.Msg {
		err := a.profiles.CompleteOnboarding(context.Background(), id)
		if err == nil {
			a.ctrl.Refresh(context.Background())
		}
		return onboardResultMsg{err: err}
	}
}

func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if a.decision.Kind == route.Loading {
		return frameStyle.Render(a.spinner.View() + " Almost ready...")
	}

	snap := a.ctrl.Snapshot()
	var body string
	switch a.path {
	case route.LoginPath:
		body = a.login.view()
	case route.HomePath:
		body = a.dashboardView(snap)
	case "/quiz":
		body = a.quizView()
	case route.OnboardingPath:
		body = a.onboardingView(snap)
	case "/settings":
		body = a.settingsView(snap)
	case "/admin":
		body = a.adminView(snap)
	default:
		body = a.dashboardView(snap)
	}
	return frameStyle.Render(body)
}
