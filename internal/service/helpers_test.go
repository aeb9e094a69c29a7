package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"folio-api/internal/domain"
	"folio-api/internal/repository"
)

type sentCode struct {
	to        string
	code      string
	purpose   domain.Purpose
	expiresAt time.Time
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (m *fakeMailer) SendCode(_ context.Context, toEmail string, code string, purpose domain.Purpose, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: toEmail, code: code, purpose: purpose, expiresAt: expiresAt})
	return m.err
}

func (m *fakeMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a code to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	store    *repository.MemoryStore
	clock    *testClock
	mailer   *fakeMailer
	tokens   *JWTService
	sessions *SessionManager
	verify   *VerificationService
	oauth    *OAuthService
	users    *UserService
}

func testAuthConfig() AuthConfig {
	cfg := DefaultAuthConfig()
	cfg.AccessSecret = "access-secret"
	cfg.RefreshSecret = "refresh-secret"
	cfg.EmailTokenSecret = "email-secret"
	cfg.BcryptCost = bcrypt.MinCost
	return cfg
}

func newAuthFixture(t *testing.T) *authFixture {
	return newAuthFixtureWithConfig(t, testAuthConfig())
}

func newAuthFixtureWithConfig(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	store := repository.NewMemoryStore()
	hasher := NewBcryptHasher(cfg.BcryptCost)
	mailer := &fakeMailer{}

	tokens := NewJWTService(cfg)
	tokens.now = clock.Now
	sessions := NewSessionManager(nil, store, hasher, tokens, cfg)
	sessions.now = clock.Now
	verify := NewVerificationService(nil, store, hasher, tokens, mailer, cfg)
	verify.now = clock.Now
	oauth := NewOAuthService(nil, store)
	oauth.now = clock.Now
	users := NewUserService(nil, store)
	users.now = clock.Now

	return &authFixture{
		store:    store,
		clock:    clock,
		mailer:   mailer,
		tokens:   tokens,
		sessions: sessions,
		verify:   verify,
		oauth:    oauth,
		users:    users,
	}
}

func (f *authFixture) register(t *testing.T, emailAddr string) domain.User {
	t.Helper()
	user, err := f.sessions.CreateUser(context.Background(), emailAddr, "Passw0rd!")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (f *authFixture) activeSessions(t *testing.T, userID string) []domain.Session {
	t.Helper()
	all, err := f.store.Sessions().ListByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	var active []domain.Session
	for _, s := range all {
		if s.Active(f.clock.Now()) {
			active = append(active, s)
		}
	}
	return active
}
