package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avolkov/tandem/internal/client/models"
	"github.com/avolkov/tandem/internal/common"
	"github.com/avolkov/tandem/internal/logging"
)

const (
	requestTimeout = 12 * time.Second

	// eventBuffer bounds in-flight change notifications. Events are
	// dispatched by a single goroutine so subscriber order matches
	// event order.
	eventBuffer = 16
)

// Options configures an HTTPGateway.
type Options struct {
	// BaseURL is the provider project URL, e.g. http://127.0.0.1:54321.
	BaseURL string
	// APIKey is the project anon key sent on every request.
	APIKey string
	// SessionFile, when non-empty, is where the gateway persists its own
	// session so it survives process restarts. The rest of the client keeps
	// no durable state.
	SessionFile string
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	// Logger defaults to a nop logger.
	Logger logging.Logger
}

// HTTPGateway implements Gateway against the provider's REST surface:
// auth endpoints for session operations and row endpoints for profile and
// role lookups.
type HTTPGateway struct {
	baseURL     string
	apiKey      string
	sessionFile string
	httpClient  *http.Client
	log         logging.Logger

	mu       sync.Mutex
	session  *Session
	handlers map[uint64]Handler
	nextSub  uint64

	events    chan eventEnvelope
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type eventEnvelope struct {
	event Event
	sess  *Session
}

var _ Gateway = (*HTTPGateway)(nil)

// NewHTTPGateway constructs a gateway and starts its event dispatcher.
func NewHTTPGateway(opts Options) (*HTTPGateway, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}

	g := &HTTPGateway{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		sessionFile: opts.SessionFile,
		httpClient:  opts.HTTPClient,
		log:         opts.Logger.With("component", "gateway"),
		handlers:    make(map[uint64]Handler),
		events:      make(chan eventEnvelope, eventBuffer),
		done:        make(chan struct{}),
	}
	g.wg.Add(1)
	go g.dispatch()
	return g, nil
}

// Close stops event delivery. Further emits are dropped.
func (g *HTTPGateway) Close() error {
	g.closeOnce.Do(func() { close(g.done) })
	g.wg.Wait()
	return nil
}

// Subscribe registers h for session-change notifications.
func (g *HTTPGateway) Subscribe(h Handler) Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSub++
	id := g.nextSub
	g.handlers[id] = h
	return &subscription{g: g, id: id}
}

type subscription struct {
	g    *HTTPGateway
	id   uint64
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.g.mu.Lock()
		delete(s.g.handlers, s.id)
		s.g.mu.Unlock()
	})
}

func (g *HTTPGateway) dispatch() {
	defer g.wg.Done()
	for {
		select {
		case env := <-g.events:
			g.mu.Lock()
			hs := make([]Handler, 0, len(g.handlers))
			for _, h := range g.handlers {
				hs = append(hs, h)
			}
			g.mu.Unlock()
			for _, h := range hs {
				h(env.event, env.sess)
			}
		case <-g.done:
			return
		}
	}
}

func (g *HTTPGateway) emit(event Event, sess *Session) {
	select {
	case g.events <- eventEnvelope{event: event, sess: sess}:
	case <-g.done:
	}
}

// GetCurrentSession returns the gateway's session, restoring it from the
// session file on first call and refreshing it when the access token has
// expired. (nil, nil) means no session.
func (g *HTTPGateway) GetCurrentSession(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	if g.session == nil && g.sessionFile != "" {
		g.session = g.loadSessionFile()
	}
	sess := g.session
	g.mu.Unlock()

	if sess == nil {
		return nil, nil
	}
	if !sess.Expired() {
		return sess.clone(), nil
	}
	return g.refreshSession(ctx, sess.RefreshToken)
}

// refreshSession exchanges a refresh token for a new session. A rejected
// refresh token means the session is gone for good: the stale state is
// cleared and (nil, nil) is returned.
func (g *HTTPGateway) refreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := g.postJSON(ctx, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refreshToken}, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.log.Warn(ctx, "refresh token rejected", "status", resp.StatusCode)
		g.clearSession()
		return nil, nil
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	sess, err := sessionFromTokens(tr.AccessToken, tr.RefreshToken, tr.ExpiresIn)
	if err != nil {
		return nil, err
	}
	g.setSession(sess)
	g.emit(EventTokenRefreshed, sess.clone())
	return sess.clone(), nil
}

// SignIn performs the password grant. On success the session is adopted and
// a SignedIn event is emitted.
func (g *HTTPGateway) SignIn(ctx context.Context, email, password string) error {
	resp, err := g.postJSON(ctx, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", common.ErrInvalidCredentials, authErrorMessage(resp.Body))
	default:
		return fmt.Errorf("sign in: unexpected status %s", resp.Status)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	sess, err := sessionFromTokens(tr.AccessToken, tr.RefreshToken, tr.ExpiresIn)
	if err != nil {
		return err
	}
	g.setSession(sess)
	g.emit(EventSignedIn, sess.clone())
	return nil
}

// SignUp creates an account. When the provider confirms the account
// immediately it also returns a session, which is adopted like a sign-in.
func (g *HTTPGateway) SignUp(ctx context.Context, req SignUpRequest) error {
	payload := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data":     map[string]string{"full_name": req.FullName},
	}
	resp, err := g.postJSON(ctx, "/auth/v1/signup", payload, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sign up rejected: %s", authErrorMessage(resp.Body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode signup response: %w", err)
	}
	if tr.AccessToken == "" {
		// Email confirmation pending, no session yet.
		return nil
	}
	sess, err := sessionFromTokens(tr.AccessToken, tr.RefreshToken, tr.ExpiresIn)
	if err != nil {
		return err
	}
	g.setSession(sess)
	g.emit(EventSignedIn, sess.clone())
	return nil
}

// SignOut revokes the session server-side, drops it locally regardless of
// the call's outcome, and emits a SignedOut event. A transport failure is
// still reported to the caller.
func (g *HTTPGateway) SignOut(ctx context.Context) error {
	g.mu.Lock()
	sess := g.session
	g.mu.Unlock()

	var callErr error
	if sess != nil {
		resp, err := g.postJSON(ctx, "/auth/v1/logout", nil, sess.AccessToken)
		if err != nil {
			callErr = err
		} else {
			resp.Body.Close()
		}
	}
	g.clearSession()
	g.emit(EventSignedOut, nil)
	return callErr
}

// FetchProfileRow reads the profile row for userID.
func (g *HTTPGateway) FetchProfileRow(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var rows []profileRow
	path := fmt.Sprintf("/rest/v1/profiles?id=eq.%s&select=*", userID)
	if err := g.getJSON(ctx, path, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s: %w", userID, common.ErrNotFound)
	}
	return rows[0].toModel()
}

// UpdateProfileRow writes the mutable profile fields for profile.ID.
func (g *HTTPGateway) UpdateProfileRow(ctx context.Context, profile *models.Profile) error {
	body, err := json.Marshal(profileRowFromModel(profile))
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/rest/v1/profiles?id=eq.%s", profile.ID)
	req, err := g.newRequest(ctx, http.MethodPatch, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := g.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("update profile: unexpected status %s", resp.Status)
	}
	return nil
}

// FetchRoleRow reads the role row for userID.
func (g *HTTPGateway) FetchRoleRow(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	var rows []struct {
		Role string `json:"role"`
	}
	path := fmt.Sprintf("/rest/v1/user_roles?user_id=eq.%s&select=role", userID)
	if err := g.getJSON(ctx, path, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("role for %s: %w", userID, common.ErrNotFound)
	}
	return models.Role(rows[0].Role), nil
}

// ---- session state ----

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (g *HTTPGateway) setSession(sess *Session) {
	g.mu.Lock()
	g.session = sess
	g.mu.Unlock()
	g.saveSessionFile(sess)
}

func (g *HTTPGateway) clearSession() {
	g.mu.Lock()
	g.session = nil
	g.mu.Unlock()
	if g.sessionFile != "" {
		_ = os.Remove(g.sessionFile)
	}
}

type storedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (g *HTTPGateway) saveSessionFile(sess *Session) {
	if g.sessionFile == "" || sess == nil {
		return
	}
	data, err := json.Marshal(storedSession{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
	})
	if err != nil {
		return
	}
	if err := os.WriteFile(g.sessionFile, data, 0o600); err != nil {
		g.log.Warn(context.Background(), "session file write failed", "err", err)
	}
}

// loadSessionFile restores a persisted session. An unreadable or malformed
// file is treated as no session. The result may be expired; callers refresh.
func (g *HTTPGateway) loadSessionFile() *Session {
	data, err := os.ReadFile(g.sessionFile)
	if err != nil {
		return nil
	}
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil
	}
	sess, err := sessionFromTokens(stored.AccessToken, stored.RefreshToken, 0)
	if err != nil {
		return nil
	}
	return sess
}

// ---- wire types ----

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// sessionFromTokens builds a Session from a token pair. The access token is
// parsed without signature verification: verifying is the server's job, the
// client only needs the sub/email/exp claims.
func sessionFromTokens(accessToken, refreshToken string, expiresIn int64) (*Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("access token has no subject: %w", err)
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("access token subject: %w", err)
	}
	email, _ := claims["email"].(string)

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	} else if expiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         models.User{ID: id, Email: email},
	}, nil
}

type profileRow struct {
	ID                 string    `json:"id"`
	FullName           string    `json:"full_name"`
	PartnerName        string    `json:"partner_name"`
	AnniversaryDate    string    `json:"anniversary_date,omitempty"`
	AvatarURL          string    `json:"avatar_url"`
	OnboardingComplete bool      `json:"onboarding_complete"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

const anniversaryLayout = "2006-01-02"

func (r profileRow) toModel() (*models.Profile, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("profile row id: %w", err)
	}
	p := &models.Profile{
		ID:                 id,
		FullName:           r.FullName,
		PartnerName:        r.PartnerName,
		AvatarURL:          r.AvatarURL,
		OnboardingComplete: r.OnboardingComplete,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.AnniversaryDate != "" {
		d, err := time.Parse(anniversaryLayout, r.AnniversaryDate)
		if err != nil {
			return nil, fmt.Errorf("profile row anniversary_date: %w", err)
		}
		p.AnniversaryDate = &d
	}
	return p, nil
}

func profileRowFromModel(p *models.Profile) map[string]any {
	row := map[string]any{
		"full_name":           p.FullName,
		"partner_name":        p.PartnerName,
		"avatar_url":          p.AvatarURL,
		"onboarding_complete": p.OnboardingComplete,
	}
	if p.AnniversaryDate != nil {
		row["anniversary_date"] = p.AnniversaryDate.Format(anniversaryLayout)
	} else {
		row["anniversary_date"] = nil
	}
	return row
}

// ---- transport helpers ----

func (g *HTTPGateway) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(common.APIKeyHeaderName, g.apiKey)
	g.mu.Lock()
	sess := g.session
	g.mu.Unlock()
	if sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}
	return req, nil
}

func (g *HTTPGateway) do(req *http.Request) (*http.Response, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	return resp, nil
}

func (g *HTTPGateway) postJSON(ctx context.Context, path string, payload any, bearer string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := g.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return g.do(req)
}

func (g *HTTPGateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := g.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := g.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// authErrorMessage extracts a human-readable message from an auth error
// body. The provider uses several shapes depending on endpoint and version.
func authErrorMessage(body io.Reader) string {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "request rejected"
	}
	for _, s := range []string{payload.Msg, payload.Message, payload.ErrorDescription, payload.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return "request rejected"
}
