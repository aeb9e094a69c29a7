package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"folio-api/internal/domain"
	"folio-api/internal/repository"
	"folio-api/internal/service"
)

type sentCode struct {
	to      string
	code    string
	purpose domain.Purpose
}

type captureMailer struct {
	mu   sync.Mutex
	sent []sentCode
}

func (m *captureMailer) SendCode(_ context.Context, toEmail string, code string, purpose domain.Purpose, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentCode{to: toEmail, code: code, purpose: purpose})
	return nil
}

func (m *captureMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected a code to be sent")
	}
	return m.sent[len(m.sent)-1]
}

type stubChallenge struct {
	ok  bool
	err error
}

func (s *stubChallenge) Verify(context.Context, string, string) (bool, error) {
	return s.ok, s.err
}

type fakeGoogle struct {
	profile service.OAuthProfile
	err     error
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/o/oauth2/auth?state=" + state
}

func (g *fakeGoogle) Exchange(_ context.Context, code string) (service.OAuthProfile, error) {
	if g.err != nil {
		return service.OAuthProfile{}, g.err
	}
	return g.profile, nil
}

type testServer struct {
	router    *gin.Engine
	store     *repository.MemoryStore
	mailer    *captureMailer
	challenge *stubChallenge
	google    *fakeGoogle
	jwt       *service.JWTService
}

type serverOption func(*RouterDeps)

func withLimiter(l service.RequestLimiter) serverOption {
	return func(d *RouterDeps) { d.Limiter = l }
}

func withTrustedProxies(proxies ...string) serverOption {
	return func(d *RouterDeps) { d.TrustedProxies = proxies }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cfg := service.DefaultAuthConfig()
	cfg.AccessSecret = "access-secret"
	cfg.RefreshSecret = "refresh-secret"
	cfg.EmailTokenSecret = "email-secret"
	cfg.BcryptCost = bcrypt.MinCost

	store := repository.NewMemoryStore()
	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	tokens := service.NewJWTService(cfg)
	mailer := &captureMailer{}
	ch := &stubChallenge{ok: true}
	google := &fakeGoogle{}

	auth := NewAuthHandler(logger, AuthDeps{
		Sessions:     service.NewSessionManager(logger, store, hasher, tokens, cfg),
		Verification: service.NewVerificationService(logger, store, hasher, tokens, mailer, cfg),
		OAuth:        service.NewOAuthService(logger, store),
		Google:       google,
		Challenge:    ch,
		Cookies:      CookieConfig{Path: "/api", SameSite: http.SameSiteLaxMode},
		FrontendURL:  "http://app.test",
	})
	deps := RouterDeps{
		APIPrefix: "/api",
		JWT:       tokens,
		Auth:      auth,
		Users:     NewUserHandler(logger, service.NewUserService(logger, store)),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &testServer{
		router:    NewRouter(logger, deps),
		store:     store,
		mailer:    mailer,
		challenge: ch,
		google:    google,
		jwt:       tokens,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doBearer(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// registerAndVerify completa el alta y devuelve el access token y la cookie
// de refresh resultantes.
func (s *testServer) registerAndVerify(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": password, "token": "ok"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	verifyCookie := responseCookie(rec, emailVerificationCookie)
	if verifyCookie == nil {
		t.Fatalf("expected verification cookie")
	}
	rec = s.do(t, http.MethodPost, "/api/auth/email-verification", map[string]string{"code": s.mailer.last(t).code}, verifyCookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["access_token"].(string), responseCookie(rec, refreshCookie)
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}
