package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultUserAllowsEverythingNoPass(t *testing.T) {
	a := New()
	u, err := a.Authenticate(DefaultUserName, "anything")
	require.NoError(t, err)
	assert.NoError(t, a.CanExecute(u, "SET", "any-key"))
	assert.NoError(t, a.CanAccessChannel(u, "any-channel"))
}

func TestDefaultUserCannotBeDeleted(t *testing.T) {
	a := New()
	err := a.DeleteUser(DefaultUserName)
	assert.ErrorIs(t, err, ErrUndeletable)
}

func TestCreateUserStartsWithNoPermissions(t *testing.T) {
	a := New()
	u, err := a.CreateUser("limited")
	require.NoError(t, err)

	assert.ErrorIs(t, a.CanExecute(u, "GET", "k"), ErrNoPermCmd)
}

func TestCreateUserDuplicateFails(t *testing.T) {
	a := New()
	_, err := a.CreateUser("dup")
	require.NoError(t, err)
	_, err = a.CreateUser("dup")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAllowCommandGrantsExactCommand(t *testing.T) {
	a := New()
	u, _ := a.CreateUser("limited")
	a.AllowCommand("limited", "get")

	assert.NoError(t, a.CanExecute(u, "GET", ""))
	assert.ErrorIs(t, a.CanExecute(u, "SET", ""), ErrNoPermCmd)
}

func TestDenyCommandOverridesAllow(t *testing.T) {
	a := New()
	u, _ := a.CreateUser("limited")
	a.AllowCommand("limited", "GET")
	a.DenyCommand("limited", "GET")

	assert.ErrorIs(t, a.CanExecute(u, "GET", ""), ErrNoPermCmd)
}

func TestKeyPatternRestriction(t *testing.T) {
	a := New()
	u, _ := a.CreateUser("limited")
	a.AllowCommand("limited", "GET")
	a.AllowKeyPattern("limited", "user:*")

	assert.NoError(t, a.CanExecute(u, "GET", "user:1"))
	assert.ErrorIs(t, a.CanExecute(u, "GET", "other:1"), ErrNoPermKey)
}

func TestChannelPatternRestriction(t *testing.T) {
	a := New()
	u, _ := a.CreateUser("limited")
	a.AllowChannelPattern("limited", "news.*")

	assert.NoError(t, a.CanAccessChannel(u, "news.sports"))
	assert.ErrorIs(t, a.CanAccessChannel(u, "weather"), ErrNoPermChan)
}

func TestSetPasswordThenAuthenticate(t *testing.T) {
	a := New()
	a.CreateUser("bob")
	a.SetPassword("bob", "secret")

	_, err := a.Authenticate("bob", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = a.Authenticate("bob", "secret")
	assert.NoError(t, err)
}

func TestAuthenticateUnknownUserFails(t *testing.T) {
	a := New()
	_, err := a.Authenticate("ghost", "x")
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestRecentFailuresRecordsDenials(t *testing.T) {
	a := New()
	u, _ := a.CreateUser("limited")
	a.CanExecute(u, "GET", "")

	failures := a.RecentFailures()
	require.NotEmpty(t, failures)
	assert.Equal(t, "limited", failures[len(failures)-1].Username)
}

func TestDeleteUserRemovesNonDefault(t *testing.T) {
	a := New()
	a.CreateUser("temp")
	require.NoError(t, a.DeleteUser("temp"))
	assert.Len(t, a.Users(), 1)
}
