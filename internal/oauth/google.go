package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"folio-api/internal/service"
)

const (
	ProviderGoogle = "google"

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// GoogleProvider implementa el flujo authorization code contra Google y
// traduce el userinfo a un service.OAuthProfile.
type GoogleProvider struct {
	config      oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, callbackURL string) (*GoogleProvider, error) {
	if strings.TrimSpace(clientID) == "" || strings.TrimSpace(clientSecret) == "" {
		return nil, fmt.Errorf("google client id and secret are required")
	}
	if strings.TrimSpace(callbackURL) == "" {
		return nil, fmt.Errorf("google callback url is required")
	}
	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}, nil
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange canjea el code del callback y lee el perfil del usuario. No hay
// reintentos: cualquier fallo de red se devuelve tal cual.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (service.OAuthProfile, error) {
	if strings.TrimSpace(code) == "" {
		return service.OAuthProfile{}, fmt.Errorf("missing authorization code")
	}
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return service.OAuthProfile{}, fmt.Errorf("code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return service.OAuthProfile{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := g.config.Client(ctx, token).Do(req)
	if err != nil {
		return service.OAuthProfile{}, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return service.OAuthProfile{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return service.OAuthProfile{}, fmt.Errorf("user info status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return service.OAuthProfile{}, fmt.Errorf("unmarshal user info: %w", err)
	}
	return service.OAuthProfile{
		Provider:          ProviderGoogle,
		ProviderAccountID: info.Sub,
		Email:             info.Email,
		EmailVerified:     info.EmailVerified,
		DisplayName:       info.Name,
	}, nil
}

// NewState genera el valor aleatorio de la cookie oauthstate.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
