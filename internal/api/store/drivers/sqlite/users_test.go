package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/store"
	"github.com/kavineksith/user-management-api/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newTestUser() domain.User {
	id := idx.New().String()
	return domain.User{
		ID:           id,
		Username:     "user_" + id[20:],
		Email:        "user+" + id[20:] + "@example.com",
		PasswordHash: "$2a$12$fakehashfakehashfakehashfakehashfakehashfakehashfake",
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUsers_CreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	require.NoError(t, s.Users().Create(ctx, u))

	byID, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.Equal(t, domain.RoleUser, byID.Role)
	require.True(t, byID.IsActive)
	require.Nil(t, byID.PasswordChangedAt)
	require.Nil(t, byID.PasswordResetToken)

	byEmail, err := s.Users().GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = s.Users().GetByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_DuplicateEmailHitsConstraint(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	first := newTestUser()
	require.NoError(t, s.Users().Create(ctx, first))

	second := newTestUser()
	second.Email = first.Email
	err := s.Users().Create(ctx, second)
	require.ErrorIs(t, err, store.ErrAlreadyExists,
		"the UNIQUE constraint must reject the duplicate even without an application-level check")
}

func TestUsers_List(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	var created []domain.User
	for range 5 {
		u := newTestUser()
		require.NoError(t, s.Users().Create(ctx, u))
		created = append(created, u)
	}

	page1, err := s.Users().List(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	require.Equal(t, created[0].ID, page1[0].ID, "list is ordered by creation")

	page2, err := s.Users().List(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, page2, 2)

	for _, u := range append(page1, page2...) {
		require.Empty(t, u.PasswordHash, "list must not expose password hashes")
		require.Nil(t, u.PasswordResetToken)
	}
}

func TestUsers_UpdateProfile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	require.NoError(t, s.Users().Create(ctx, u))

	require.NoError(t, s.Users().UpdateProfile(ctx, u.ID, "newname", "new@example.com"))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "newname", got.Username)
	require.Equal(t, "new@example.com", got.Email)
	require.Equal(t, u.PasswordHash, got.PasswordHash, "profile update must not touch the password")

	// Updating into another user's email trips the constraint.
	other := newTestUser()
	require.NoError(t, s.Users().Create(ctx, other))
	err = s.Users().UpdateProfile(ctx, other.ID, other.Username, "new@example.com")
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.Users().UpdateProfile(ctx, "missing", "x", "x@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUsers_ResetTokenLifecycle(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u := newTestUser()
	require.NoError(t, s.Users().Create(ctx, u))

	const hash = "fingerprint-abc"
	require.NoError(t, s.Users().SetResetToken(ctx, u.ID, hash, now.Add(10*time.Minute)))

	got, err := s.Users().GetByResetToken(ctx, hash, now)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	// Expired token resolves exactly like a nonexistent one.
	_, err = s.Users().GetByResetToken(ctx, hash, now.Add(11*time.Minute))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Users().GetByResetToken(ctx, "never-issued", now)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Consuming clears both columns and stamps the change time.
	require.NoError(t, s.Users().ResetPassword(ctx, u.ID, "newhash", now))
	_, err = s.Users().GetByResetToken(ctx, hash, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	after, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "newhash", after.PasswordHash)
	require.Nil(t, after.PasswordResetToken)
	require.Nil(t, after.PasswordResetExpires)
	require.NotNil(t, after.PasswordChangedAt)
}

func TestUsers_UpdatePasswordStampsChangedAt(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	require.NoError(t, s.Users().Create(ctx, u))

	changedAt := time.Now().UTC()
	require.NoError(t, s.Users().UpdatePassword(ctx, u.ID, "hash2", changedAt))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "hash2", got.PasswordHash)
	require.NotNil(t, got.PasswordChangedAt)
	require.WithinDuration(t, changedAt, *got.PasswordChangedAt, time.Second)
}

func TestUsers_SetRoleAndActive(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	require.NoError(t, s.Users().Create(ctx, u))

	require.NoError(t, s.Users().SetRole(ctx, u.ID, domain.RoleAdmin))
	require.NoError(t, s.Users().SetActive(ctx, u.ID, false))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.IsAdmin())
	require.False(t, got.IsActive)

	require.ErrorIs(t, s.Users().SetRole(ctx, "missing", domain.RoleAdmin), store.ErrNotFound)
}

func TestUsers_Delete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Users().Delete(ctx, u.ID))

	_, err := s.Users().GetByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, s.Users().Delete(ctx, u.ID), store.ErrNotFound)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return context.Canceled // force rollback
	})
	require.Error(t, err)

	_, err = s.Users().GetByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound, "rolled-back insert must not be visible")
}

func TestWithTx_Commits(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	u := newTestUser()
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().Create(ctx, u)
	}))

	got, err := s.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)
}
