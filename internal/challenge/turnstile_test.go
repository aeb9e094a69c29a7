package challenge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnstileVerifier(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "s3cret", r.PostForm.Get("secret"))
		assert.Equal(t, "10.0.0.1", r.PostForm.Get("remoteip"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v, err := NewTurnstileVerifier("s3cret", srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := v.Verify(ctx, "good", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(ctx, "bad", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify(ctx, " ", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(2), calls.Load(), "empty token never reaches the network")
}

func TestTurnstileVerifier_UpstreamFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v, err := NewTurnstileVerifier("s3cret", srv.URL)
	require.NoError(t, err)

	ok, err := v.Verify(context.Background(), "token", "")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load(), "no retry")
}

func TestNewTurnstileVerifier(t *testing.T) {
	_, err := NewTurnstileVerifier("", "")
	assert.Error(t, err)

	v, err := NewTurnstileVerifier("s3cret", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTurnstileURL, v.verifyURL)

	ok, err := NewDisabledVerifier().Verify(context.Background(), "", "")
	assert.NoError(t, err)
	assert.True(t, ok)
}
