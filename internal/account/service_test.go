package account

import (
	"context"
	"strings"
	"testing"
	"time"

	"talehub/internal/apperr"
	"talehub/internal/auth"
	"talehub/internal/domain"
	"talehub/internal/notify"
	"talehub/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenService(auth.Config{
		AccessSecret:  strings.Repeat("a", 32),
		RefreshSecret: strings.Repeat("r", 32),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, store)
	return NewService(store, tokens, notify.Nop{}), store
}

func TestSignUp(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p, err := svc.SignUp(ctx, "  Alice ", "ALICE@Example.com", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "alice@example.com", p.Email)

	_, err = svc.SignUp(ctx, "alice", "other@example.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = svc.SignUp(ctx, "other", "alice@example.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.SignUp(ctx, "bob", "bob@example.com", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// the original account still signs in
	_, err = svc.SignIn(ctx, "alice@example.com", "pw123456")
	assert.NoError(t, err)
}

func TestSignIn(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "alice", "alice@example.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.SignIn(ctx, "nobody@example.com", "pw123456")
	assert.ErrorIs(t, err, apperr.ErrAuthInvalid)
	_, err = svc.SignIn(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrAuthInvalid)

	sess, err := svc.SignIn(ctx, " Alice@example.com", "pw123456")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Tokens.AccessToken)
	assert.NotEmpty(t, sess.Tokens.RefreshToken)

	acc, err := store.FindAccountByID(ctx, sess.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.HashToken(sess.Tokens.RefreshToken), acc.RefreshTokenHash)
}

func TestRefreshAndSignOut(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SignUp(ctx, "alice", "alice@example.com", "pw123456")
	require.NoError(t, err)
	sess, err := svc.SignIn(ctx, "alice@example.com", "pw123456")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrAuthInvalid)

	pair, err := svc.Refresh(ctx, sess.Tokens.RefreshToken)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, sess.Tokens.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthRevoked)

	require.NoError(t, svc.SignOut(ctx, sess.Account.ID))
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthRevoked)
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	p, err := svc.SignUp(ctx, "alice", "alice@example.com", "old-pass")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, p.ID, "nope", "new-pass"), apperr.ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, p.ID, "old-pass", "new-pass"))

	_, err = svc.SignIn(ctx, "alice@example.com", "old-pass")
	assert.ErrorIs(t, err, apperr.ErrAuthInvalid)
	_, err = svc.SignIn(ctx, "alice@example.com", "new-pass")
	assert.NoError(t, err)
}

func TestUpdateHandles(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	alice, err := svc.SignUp(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.SignUp(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)

	_, err = svc.UpdateUsername(ctx, alice.ID, "BOB")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	p, err := svc.UpdateUsername(ctx, alice.ID, " Alicia ")
	require.NoError(t, err)
	assert.Equal(t, "alicia", p.Username)

	_, err = svc.UpdateEmail(ctx, alice.ID, "bob@example.com")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	p, err = svc.UpdateEmail(ctx, alice.ID, "alicia@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alicia@example.com", p.Email)

	_, err = svc.UpdateEmail(ctx, alice.ID, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, name := range []string{"alice", "malik", "bob"} {
		_, err := svc.SignUp(ctx, name, name+"@example.com", "pw")
		require.NoError(t, err)
	}

	_, err := svc.Search(ctx, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := svc.Search(ctx, "LI")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "malik", got[1].Username)
}

func TestNotifications(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	alice, err := svc.SignUp(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	bob, err := svc.SignUp(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		_, err := store.CreateNotification(ctx, domain.Notification{RecipientID: alice.ID, Message: "m"})
		require.NoError(t, err)
	}

	list, err := svc.Notifications(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, NotificationLimit)
	assert.Greater(t, list[0].ID, list[1].ID, "newest first")

	assert.ErrorIs(t, svc.DeleteNotification(ctx, bob.ID, list[0].ID), apperr.ErrNotFound)
	require.NoError(t, svc.DeleteNotification(ctx, alice.ID, list[0].ID))
}
