package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_UpdateUsername(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com")
	bob := f.register(t, "bob@example.com")

	updated, err := f.users.UpdateUsername(ctx, alice.ID, " Alice_1 ")
	require.NoError(t, err)
	assert.Equal(t, "alice_1", updated.Username)

	_, err = f.users.UpdateUsername(ctx, alice.ID, "alice_1")
	assert.NoError(t, err, "re-claiming the same name is a no-op")

	_, err = f.users.UpdateUsername(ctx, bob.ID, "alice_1")
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "Username is already taken.", err.Error())

	_, err = f.users.UpdateUsername(ctx, bob.ID, "no")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = f.users.UpdateUsername(ctx, bob.ID, "has space")
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = f.users.UpdateUsername(ctx, "missing", "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_Profiles(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	user := f.register(t, "writer@example.com")

	profile, err := f.users.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "writer@example.com", profile.Email)

	_, err = f.users.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.users.GetPublicProfile(ctx, "writer")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.users.UpdateUsername(ctx, user.ID, "writer")
	require.NoError(t, err)
	public, err := f.users.GetPublicProfile(ctx, "Writer")
	require.NoError(t, err)
	assert.Equal(t, "writer", public.Username)
	assert.Equal(t, user.CreatedAt, public.CreatedAt)
}

func TestPasswordAndEmailPolicy(t *testing.T) {
	assert.True(t, isValidPassword("Passw0rd!"))
	assert.False(t, isValidPassword("Pa55"))
	assert.False(t, isValidPassword("password1"))
	assert.False(t, isValidPassword("PASSWORD1"))
	assert.False(t, isValidPassword("Password"))

	assert.True(t, isValidEmail("user@example.com"))
	assert.False(t, isValidEmail("user@localhost"))
	assert.False(t, isValidEmail("User <user@example.com>"))
	assert.False(t, isValidEmail(""))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrUnauthorized, KindOf(errAccessDenied))
	assert.Equal(t, ErrConflict, KindOf(errEmailInUse))
	assert.Equal(t, ErrForbidden, KindOf(errInvalidCode))
	assert.Equal(t, ErrNotFound, KindOf(errUserNotFound))
	assert.Nil(t, KindOf(ErrInvalidEmail))
}
