package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/tandem/internal/client/auth"
	"github.com/avolkov/tandem/internal/client/gateway"
	"github.com/avolkov/tandem/internal/client/models"
	"github.com/avolkov/tandem/internal/client/route"
	"github.com/avolkov/tandem/internal/common"
)

// ---- fake gateway ----

// fakeGateway implements gateway.Gateway for controller tests. Handlers are
// invoked synchronously from emit, in call order, mirroring the real
// gateway's serialized dispatch.
type fakeGateway struct {
	mu sync.Mutex

	session      *gateway.Session
	sessionErr   error
	sessionCalls int

	profile     *models.Profile
	profileErr  error
	profileGate chan struct{} // when set, FetchProfileRow blocks until closed

	role    models.Role
	roleErr error

	signInErr  error
	signUpErr  error
	signOutErr error

	nextSub  int
	handlers map[int]gateway.Handler
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{handlers: make(map[int]gateway.Handler)}
}

func (f *fakeGateway) GetCurrentSession(ctx context.Context) (*gateway.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionCalls++
	return f.session, f.sessionErr
}

func (f *fakeGateway) Subscribe(h gateway.Handler) gateway.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSub++
	id := f.nextSub
	f.handlers[id] = h
	return &fakeSub{f: f, id: id}
}

type fakeSub struct {
	f  *fakeGateway
	id int
}

func (s *fakeSub) Unsubscribe() {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	delete(s.f.handlers, s.id)
}

func (f *fakeGateway) emit(event gateway.Event, sess *gateway.Session) {
	f.mu.Lock()
	hs := make([]gateway.Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(event, sess)
	}
}

func (f *fakeGateway) FetchProfileRow(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	gate, profile, err := f.profileGate, f.profile, f.profileErr
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, common.ErrNotFound
	}
	return profile, nil
}

func (f *fakeGateway) UpdateProfileRow(ctx context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = profile
	return nil
}

func (f *fakeGateway) FetchRoleRow(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return "", f.roleErr
	}
	if f.role == "" {
		return "", common.ErrNotFound
	}
	return f.role, nil
}

func (f *fakeGateway) SignIn(ctx context.Context, email, password string) error { return f.signInErr }
func (f *fakeGateway) SignUp(ctx context.Context, req gateway.SignUpRequest) error {
	return f.signUpErr
}
func (f *fakeGateway) SignOut(ctx context.Context) error { return f.signOutErr }
func (f *fakeGateway) Close() error                      { return nil }

func testSession(t *testing.T) *gateway.Session {
	t.Helper()
	return &gateway.Session{
		AccessToken: "token",
		User:        models.User{ID: uuid.New(), Email: "pat@example.com"},
	}
}

// ---- TESTS ----

func TestInitialize_NoSession(t *testing.T) {
	f := newFakeGateway()
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)

	c.Initialize(context.Background())

	snap := store.Read()
	assert.True(t, snap.Initialized)
	assert.Nil(t, snap.User)
	assert.False(t, snap.IsAdmin)
	assert.False(t, snap.IsOnboarded)
}

func TestInitialize_GatewayErrorTreatedAsNoSession(t *testing.T) {
	f := newFakeGateway()
	f.sessionErr = common.ErrNetwork
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)

	c.Initialize(context.Background())

	snap := store.Read()
	assert.True(t, snap.Initialized)
	assert.Nil(t, snap.User)
}

func TestInitialize_FullSequence(t *testing.T) {
	f := newFakeGateway()
	sess := testSession(t)
	f.session = sess
	f.profile = &models.Profile{ID: sess.User.ID, FullName: "Pat", OnboardingComplete: true}
	f.role = models.RoleAdmin

	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())

	snap := store.Read()
	require.NotNil(t, snap.User)
	assert.Equal(t, sess.User.ID, snap.User.ID)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, "Pat", snap.Profile.FullName)
	assert.True(t, snap.IsAdmin)
	assert.True(t, snap.IsOnboarded)
	assert.True(t, snap.Initialized)
}

func TestInitialize_RowFailuresDegrade(t *testing.T) {
	f := newFakeGateway()
	f.session = testSession(t)
	f.profileErr = common.ErrNetwork
	f.roleErr = common.ErrNetwork

	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())

	// Initialization always completes; failed rows degrade to defaults.
	snap := store.Read()
	assert.True(t, snap.Initialized)
	require.NotNil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsAdmin)
	assert.False(t, snap.IsOnboarded)
}

func TestInitialize_RunsOnce(t *testing.T) {
	f := newFakeGateway()
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)

	c.Initialize(context.Background())
	c.Initialize(context.Background())

	f.mu.Lock()
	calls := f.sessionCalls
	f.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestChange_SignOutPublishesWithoutNetwork(t *testing.T) {
	f := newFakeGateway()
	sess := testSession(t)
	f.session = sess
	f.profile = &models.Profile{ID: sess.User.ID, OnboardingComplete: true}

	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())
	c.Start()
	defer c.Close()

	require.NotNil(t, store.Read().User)

	f.emit(gateway.EventSignedOut, nil)

	snap := store.Read()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Profile)
	assert.False(t, snap.IsAdmin)
	assert.True(t, snap.Initialized, "sign-out never reverts initialization")
}

func TestChange_SignInUpdatesSnapshot(t *testing.T) {
	f := newFakeGateway()
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())
	c.Start()
	defer c.Close()

	sess := testSession(t)
	f.mu.Lock()
	f.profile = &models.Profile{ID: sess.User.ID, FullName: "Pat", OnboardingComplete: true}
	f.mu.Unlock()

	f.emit(gateway.EventSignedIn, sess)

	require.Eventually(t, func() bool {
		snap := store.Read()
		return snap.User != nil && snap.Profile != nil
	}, time.Second, 10*time.Millisecond)
	assert.True(t, store.Read().IsOnboarded)
}

// A sign-out processed after a sign-in's fetch sequence started, but before
// it completed, must win: the late fetch result is discarded.
func TestChange_SignOutSupersedesInFlightSignIn(t *testing.T) {
	f := newFakeGateway()
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())
	c.Start()
	defer c.Close()

	gate := make(chan struct{})
	sess := testSession(t)
	f.mu.Lock()
	f.profile = &models.Profile{ID: sess.User.ID, FullName: "Pat", OnboardingComplete: true}
	f.profileGate = gate
	f.mu.Unlock()

	// Sign-in starts; its profile fetch parks on the gate.
	f.emit(gateway.EventSignedIn, sess)
	require.Eventually(t, func() bool {
		return store.Read().User != nil
	}, time.Second, 5*time.Millisecond, "intermediate user-only snapshot expected")

	// Sign-out arrives and is fully processed first.
	f.emit(gateway.EventSignedOut, nil)
	require.Nil(t, store.Read().User)

	// The parked fetch now completes; its publish must be discarded.
	close(gate)
	time.Sleep(100 * time.Millisecond)

	snap := store.Read()
	assert.Nil(t, snap.User, "late sign-in result must not overwrite sign-out")
	assert.Nil(t, snap.Profile)
	assert.True(t, snap.Initialized)
}

func TestClose_StopsPublishes(t *testing.T) {
	f := newFakeGateway()
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())
	c.Start()
	c.Close()
	c.Close() // idempotent

	gen := store.Generation()
	f.emit(gateway.EventSignedIn, testSession(t))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, gen, store.Generation())
}

func TestRefresh_PicksUpRowChanges(t *testing.T) {
	f := newFakeGateway()
	sess := testSession(t)
	f.session = sess

	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Initialize(context.Background())
	require.False(t, store.Read().IsAdmin)

	f.mu.Lock()
	f.role = models.RoleAdmin
	f.profile = &models.Profile{ID: sess.User.ID, OnboardingComplete: true}
	f.mu.Unlock()

	c.Refresh(context.Background())

	snap := store.Read()
	assert.True(t, snap.IsAdmin)
	assert.True(t, snap.IsOnboarded)
}

func TestSignIn_ErrorsPropagate(t *testing.T) {
	f := newFakeGateway()
	f.signInErr = common.ErrInvalidCredentials
	c := auth.NewController(f, auth.NewStore(), nil)

	err := c.SignIn(context.Background(), "a@b.c", "nope")
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
}

// ---- lifecycle scenarios against the evaluator ----

var protectedReq = route.Requirement{RequiresAuth: true}

func TestScenario_ColdStartFastNetwork(t *testing.T) {
	f := newFakeGateway()
	sess := testSession(t)
	f.session = sess
	f.profile = &models.Profile{ID: sess.User.ID, OnboardingComplete: true}

	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	guard := auth.NewGuard()
	guard.StartWaiting(1500 * time.Millisecond)

	// Before initialization completes: loading.
	d := route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", nil)
	assert.Equal(t, route.Loading, d.Kind)

	c.Initialize(context.Background())
	guard.Resolve()

	d = route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", nil)
	assert.Equal(t, route.Render, d.Kind)
}

func TestScenario_ColdStartNetworkDown(t *testing.T) {
	f := newFakeGateway()
	f.sessionErr = common.ErrNetwork

	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	guard := auth.NewGuard()
	guard.StartWaiting(1500 * time.Millisecond)

	d := route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", nil)
	assert.Equal(t, route.Loading, d.Kind)

	c.Initialize(context.Background())
	guard.Resolve()

	stash := &route.Stash{}
	d = route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", stash)
	require.Equal(t, route.Redirect, d.Kind)
	assert.Equal(t, route.LoginPath, d.Target)

	saved, ok := stash.Take()
	require.True(t, ok)
	assert.Equal(t, "/dashboard", saved)
}

// Session presence was published early, but the full fetch sequence hangs.
// Once the guard gives up, the evaluator renders optimistically instead of
// spinning forever.
func TestScenario_SlowNetworkTimeoutRescue(t *testing.T) {
	f := newFakeGateway()
	store := auth.NewStore()
	c := auth.NewController(f, store, nil)
	c.Start()
	defer c.Close()

	gate := make(chan struct{})
	defer close(gate)
	sess := testSession(t)
	f.mu.Lock()
	f.profileGate = gate
	f.mu.Unlock()

	// The sign-in notification publishes the user-only snapshot, then its
	// fetch sequence parks. Initialized stays false: nothing finished.
	f.emit(gateway.EventSignedIn, sess)
	require.Eventually(t, func() bool {
		return store.Read().User != nil
	}, time.Second, 5*time.Millisecond)

	guard := auth.NewGuard()
	guard.StartWaiting(30 * time.Millisecond)

	d := route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", nil)
	assert.Equal(t, route.Loading, d.Kind)

	require.Eventually(t, guard.TimedOut, time.Second, 5*time.Millisecond)

	d = route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", nil)
	assert.Equal(t, route.Render, d.Kind, "timed out with a user present renders optimistically")
}

func TestScenario_TimeoutWithoutUserRedirectsToLogin(t *testing.T) {
	store := auth.NewStore()
	guard := auth.NewGuard()
	guard.StartWaiting(10 * time.Millisecond)
	require.Eventually(t, guard.TimedOut, time.Second, 5*time.Millisecond)

	d := route.Evaluate(store.Read(), guard.State(), protectedReq, "/dashboard", nil)
	require.Equal(t, route.Redirect, d.Kind)
	assert.Equal(t, route.LoginPath, d.Target)
}

func TestGatewayErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(common.ErrNetwork, common.ErrNotFound))
	assert.False(t, errors.Is(common.ErrInvalidCredentials, common.ErrNetwork))
}
