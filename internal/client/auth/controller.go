package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/avolkov/tandem/internal/client/gateway"
	"github.com/avolkov/tandem/internal/client/models"
	"github.com/avolkov/tandem/internal/common"
	"github.com/avolkov/tandem/internal/logging"
)

// defaultChangeTimeout bounds the profile/role fetch triggered by a single
// change notification. It only limits how long the fetch may run; the
// published snapshot degrades rather than fails when it trips.
const defaultChangeTimeout = 12 * time.Second

// Controller establishes and maintains the session snapshot. It runs the
// initial fetch sequence exactly once per process, subscribes to gateway
// change notifications for the rest of the process lifetime, and proxies
// credential operations to the gateway.
//
// The controller is the store's only writer. Every publish goes through a
// sequence token taken before the first suspension point, so overlapping
// sequences resolve to last-started-wins.
type Controller struct {
	gw    gateway.Gateway
	store *Store
	log   logging.Logger

	changeTimeout time.Duration

	initOnce sync.Once

	mu  sync.Mutex
	sub gateway.Subscription
}

// NewController wires a controller to its gateway and store. A nil logger
// defaults to nop.
func NewController(gw gateway.Gateway, store *Store, log logging.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{
		gw:            gw,
		store:         store,
		log:           log.With("component", "auth"),
		changeTimeout: defaultChangeTimeout,
	}
}

// Snapshot returns the current session snapshot.
func (c *Controller) Snapshot() Snapshot {
	return c.store.Read()
}

// Store exposes the underlying store for consumers that poll its generation.
func (c *Controller) Store() *Store {
	return c.store
}

// Initialize runs the initial fetch sequence exactly once per process.
// Whatever the gateway does — no session, partial failure, total failure —
// the store ends with Initialized=true so consumers are never stuck
// loading. Repeat calls are no-ops.
func (c *Controller) Initialize(ctx context.Context) {
	c.initOnce.Do(func() { c.initialize(ctx) })
}

func (c *Controller) initialize(ctx context.Context) {
	token := c.store.Begin()

	sess, err := c.gw.GetCurrentSession(ctx)
	if err != nil || sess == nil {
		if err != nil {
			c.log.Warn(ctx, "session restore failed, starting unauthenticated", "err", err)
		}
		c.store.PublishAs(token, Snapshot{Initialized: true})
		return
	}

	c.log.Info(ctx, "session restored", "user", sess.User.ID)
	c.runFetchSequence(ctx, token, sess.User)
}

// Start subscribes to gateway change notifications. Safe to call more than
// once; only one subscription is held.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return
	}
	c.sub = c.gw.Subscribe(c.onChange)
}

// Close cancels the change subscription so no further publishes occur.
// Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
}

// onChange handles one gateway notification. The sequence token is taken
// here, synchronously in event order; the fetch work runs on its own
// goroutine so a slow fetch never delays later notifications. A stale
// fetch's publish is then discarded by the store.
func (c *Controller) onChange(event gateway.Event, sess *gateway.Session) {
	token := c.store.Begin()

	if sess == nil {
		// Sign-out needs no network round-trip.
		c.log.Info(context.Background(), "session change", "event", event, "user", nil)
		c.store.PublishAs(token, Snapshot{Initialized: true})
		return
	}

	user := sess.User
	c.log.Info(context.Background(), "session change", "event", event, "user", user.ID)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.changeTimeout)
		defer cancel()
		c.runFetchSequence(ctx, token, user)
	}()
}

// runFetchSequence publishes the intermediate user-only snapshot, fetches
// the profile and role rows, and publishes the final snapshot under the
// same token. Row failures degrade to defaults; the sequence always
// publishes a final snapshot with Initialized=true.
func (c *Controller) runFetchSequence(ctx context.Context, token uint64, user models.User) {
	u := user
	c.store.PublishAs(token, Snapshot{User: &u})

	snap := Snapshot{User: &u, Initialized: true}

	profile, err := c.gw.FetchProfileRow(ctx, user.ID)
	switch {
	case err == nil:
		snap.Profile = profile
		snap.IsOnboarded = profile.OnboardingComplete
	case errors.Is(err, common.ErrNotFound):
		// No profile row yet; the user has not onboarded.
	default:
		c.log.Warn(ctx, "profile fetch failed, continuing without profile", "user", user.ID, "err", err)
	}

	role, err := c.gw.FetchRoleRow(ctx, user.ID)
	switch {
	case err == nil:
		snap.IsAdmin = role.Admin()
	case errors.Is(err, common.ErrNotFound):
	default:
		c.log.Warn(ctx, "role fetch failed, assuming non-admin", "user", user.ID, "err", err)
	}

	c.store.PublishAs(token, snap)
}

// Refresh re-runs the fetch sequence for the current user, picking up row
// changes made outside the session lifecycle (e.g. onboarding completion).
// No-op when unauthenticated.
func (c *Controller) Refresh(ctx context.Context) {
	snap := c.store.Read()
	if snap.User == nil {
		return
	}
	token := c.store.Begin()
	c.runFetchSequence(ctx, token, *snap.User)
}

// SignIn authenticates with the provider. Errors propagate to the caller;
// the snapshot update arrives through the change subscription.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	return c.gw.SignIn(ctx, email, password)
}

// SignUp creates an account with the provider.
func (c *Controller) SignUp(ctx context.Context, req gateway.SignUpRequest) error {
	return c.gw.SignUp(ctx, req)
}

// SignOut ends the session. The unauthenticated snapshot arrives through
// the change subscription.
func (c *Controller) SignOut(ctx context.Context) error {
	return c.gw.SignOut(ctx)
}
