package challenge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTurnstileURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// TurnstileVerifier consulta el endpoint siteverify de Cloudflare Turnstile.
// Hace un unico intento por solicitud.
type TurnstileVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewTurnstileVerifier(secret, verifyURL string) (*TurnstileVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("turnstile secret is required")
	}
	if verifyURL == "" {
		verifyURL = DefaultTurnstileURL
	}
	return &TurnstileVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("siteverify status %d", resp.StatusCode)
	}

	var parsed siteverifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("unmarshal response: %w", err)
	}
	return parsed.Success, nil
}
