package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestProvider(t *testing.T, userInfo string, userInfoStatus int) *GoogleProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(userInfoStatus)
		_, _ = w.Write([]byte(userInfo))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := NewGoogleProvider("client", "secret", "http://localhost/api/auth/google/callback")
	require.NoError(t, err)
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	p.userInfoURL = srv.URL + "/userinfo"
	return p
}

func TestGoogleProvider_Exchange(t *testing.T) {
	p := newTestProvider(t, `{"sub":"1234","email":"reader@example.com","email_verified":true,"name":"Reader"}`, http.StatusOK)

	profile, err := p.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, profile.Provider)
	assert.Equal(t, "1234", profile.ProviderAccountID)
	assert.Equal(t, "reader@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Reader", profile.DisplayName)
}

func TestGoogleProvider_ExchangeFailures(t *testing.T) {
	p := newTestProvider(t, `{}`, http.StatusOK)
	_, err := p.Exchange(context.Background(), "bad-code")
	assert.Error(t, err)
	_, err = p.Exchange(context.Background(), "")
	assert.Error(t, err)

	p = newTestProvider(t, `{"error":"boom"}`, http.StatusInternalServerError)
	_, err = p.Exchange(context.Background(), "good-code")
	assert.Error(t, err)
}

func TestGoogleProvider_AuthCodeURL(t *testing.T) {
	p, err := NewGoogleProvider("client", "secret", "http://localhost/cb")
	require.NoError(t, err)

	u, err := url.Parse(p.AuthCodeURL("state-1"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-1", u.Query().Get("state"))
	assert.Equal(t, "client", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))

	_, err = NewGoogleProvider("", "secret", "http://localhost/cb")
	assert.Error(t, err)
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 24)
}
