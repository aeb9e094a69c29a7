package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleProfile(email string) OAuthProfile {
	return OAuthProfile{
		Provider:          "google",
		ProviderAccountID: "g-" + email,
		Email:             email,
		EmailVerified:     true,
		DisplayName:       "Reader",
	}
}

func TestOAuthService_CreatesUserAndAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.oauth.ResolveOAuthUser(ctx, googleProfile("reader@example.com"))
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.False(t, user.HasPassword())

	accounts, err := f.store.Accounts().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "google", accounts[0].Provider)

	again, err := f.oauth.ResolveOAuthUser(ctx, googleProfile("reader@example.com"))
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	accounts, err = f.store.Accounts().ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1, "existing account returns the user without mutation")
}

func TestOAuthService_LinksVerifiedLocalUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	local := f.register(t, "reader@example.com")
	code, err := f.verify.IssueCode(ctx, local.ID, "email-verification")
	require.NoError(t, err)
	_, err = f.verify.VerifyEmail(ctx, local.Email, code)
	require.NoError(t, err)

	user, err := f.oauth.ResolveOAuthUser(ctx, googleProfile("Reader@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, local.ID, user.ID)
	assert.True(t, user.HasPassword())

	accounts, err := f.store.Accounts().ListByUser(ctx, local.ID)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestOAuthService_RefusesUnverifiedLocalUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	local := f.register(t, "reader@example.com")

	_, err := f.oauth.ResolveOAuthUser(ctx, googleProfile("reader@example.com"))
	require.ErrorIs(t, err, ErrOAuthEmailExists)
	assert.ErrorIs(t, err, ErrForbidden)

	accounts, err := f.store.Accounts().ListByUser(ctx, local.ID)
	require.NoError(t, err)
	assert.Empty(t, accounts, "no link may be created")
}

func TestOAuthService_RejectsUnverifiedProviderEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	profile := googleProfile("reader@example.com")
	profile.EmailVerified = false
	_, err := f.oauth.ResolveOAuthUser(ctx, profile)
	require.ErrorIs(t, err, ErrOAuthEmailUnverified)

	_, err = f.store.Users().GetByEmail(ctx, "reader@example.com")
	assert.Error(t, err, "nothing is created")
}

func TestOAuthService_RejectsMalformedProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for _, profile := range []OAuthProfile{
		{ProviderAccountID: "1", Email: "a@example.com", EmailVerified: true},
		{Provider: "google", Email: "a@example.com", EmailVerified: true},
		{Provider: "google", ProviderAccountID: "1", Email: "nope", EmailVerified: true},
	} {
		_, err := f.oauth.ResolveOAuthUser(ctx, profile)
		assert.ErrorIs(t, err, ErrOAuthInvalid)
	}
}
