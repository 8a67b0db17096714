// Package route decides what a navigation attempt is allowed to render.
// Evaluate is a pure function of the session snapshot, the timeout guard's
// state, and the route's declared requirements; the caller performs the
// navigation side effect.
package route

import (
	"sync"

	"github.com/avolkov/tandem/internal/client/auth"
)

// Well-known paths the evaluator redirects to.
const (
	LoginPath      = "/auth"
	HomePath       = "/dashboard"
	OnboardingPath = "/onboarding"
)

// Requirement is the access policy a protected view declares.
type Requirement struct {
	// RequiresAuth is true for every protected route.
	RequiresAuth bool
	// RequiresAdmin restricts the route to admin users.
	RequiresAdmin bool
	// RequiresOnboarding restricts the route to onboarded users.
	RequiresOnboarding bool
}

// Kind classifies a Decision.
type Kind int

const (
	// Render: show the protected content.
	Render Kind = iota
	// Redirect: navigate to Decision.Target instead.
	Redirect
	// Loading: authentication state is not known yet; show a wait state.
	Loading
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case Loading:
		return "loading"
	default:
		return "unknown"
	}
}

// Decision is the evaluator's verdict. Target is set only for Redirect.
type Decision struct {
	Kind   Kind
	Target string
}

// Stash holds the originally requested path so the login flow can return
// there after sign-in. One entry, read once: Take clears it.
type Stash struct {
	mu   sync.Mutex
	path string
	set  bool
}

// Set records path as the post-login destination, replacing any prior one.
func (s *Stash) Set(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.set = true
}

// Take returns the recorded path and clears it.
func (s *Stash) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.path, s.set
	s.path, s.set = "", false
	return path, ok
}

// Evaluate applies the access rules in order; the first matching rule wins.
//
//  1. Not initialized and not timed out: Loading. This must come first so
//     no redirect fires off a snapshot that is still being established.
//  2. Timed out with a user present: Render. Optimistic continuation — a
//     present user is stronger evidence than a fetch that never finished.
//  3. No user: Redirect to login, recording currentPath for the return trip.
//  4. Admin required but not admin: Redirect home.
//  5. Onboarding required, not onboarded, and not already on the onboarding
//     page: Redirect to onboarding.
//  6. Render.
//
// Rules 4 and 5 only run once a user is confirmed present; evaluating them
// earlier would send unauthenticated users to admin or onboarding paths
// instead of login. stash may be nil when the caller has no use for the
// post-login return path.
func Evaluate(snap auth.Snapshot, guard auth.GuardState, req Requirement, currentPath string, stash *Stash) Decision {
	timedOut := guard == auth.GuardTimedOut

	if !snap.Initialized && !timedOut {
		return Decision{Kind: Loading}
	}
	if timedOut && snap.Authenticated() {
		return Decision{Kind: Render}
	}
	if !snap.Authenticated() {
		if stash != nil {
			stash.Set(currentPath)
		}
		return Decision{Kind: Redirect, Target: LoginPath}
	}
	if req.RequiresAdmin && !snap.IsAdmin {
		return Decision{Kind: Redirect, Target: HomePath}
	}
	if req.RequiresOnboarding && !snap.IsOnboarded && currentPath != OnboardingPath {
		return Decision{Kind: Redirect, Target: OnboardingPath}
	}
	return Decision{Kind: Render}
}
