package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/store"
	"github.com/kavineksith/user-management-api/pkg/slogx"
)

// UserService owns the non-credential side of user records: lookups,
// listings, profile edits and the administrative mutations.
type UserService struct {
	Store store.Store
}

// GetByID fetches a user by id.
func (s *UserService) GetByID(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNoSuchUser
	}
	return u, err
}

// List returns one page of users. Page and limit are normalized by the store.
func (s *UserService) List(ctx context.Context, page, limit int) ([]domain.User, error) {
	return s.Store.Users().List(ctx, page, limit)
}

// UpdateProfile changes username and/or email, falling back to the stored
// value for any field left empty. Runs in a transaction so the read-modify-
// write cannot interleave with a concurrent edit of the same row.
func (s *UserService) UpdateProfile(ctx context.Context, userID, username, email string) (domain.User, error) {
	var updated domain.User

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}

		if username == "" {
			username = u.Username
		}
		if email == "" {
			email = u.Email
		} else {
			email = normalizeEmail(email)
		}

		if err := tx.Users().UpdateProfile(ctx, userID, username, email); err != nil {
			return err
		}

		u.Username = username
		u.Email = email
		updated = u
		return nil
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrNoSuchUser
	case errors.Is(err, store.ErrAlreadyExists):
		return domain.User{}, ErrDuplicateEmail
	case err != nil:
		return domain.User{}, err
	}

	return updated, nil
}

// SetRole assigns a role to a user. The caller validates the role value.
func (s *UserService) SetRole(ctx context.Context, userID, role string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Users().SetRole(ctx, userID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchUser
		}
		return err
	}

	l.Info("role changed", slog.String("user_id", userID), slog.String("role", role))
	return nil
}

// SetActive enables or disables an account. Disabled accounts cannot log in
// or refresh, but their row and data remain.
func (s *UserService) SetActive(ctx context.Context, userID string, active bool) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Users().SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchUser
		}
		return err
	}

	l.Info("active flag changed", slog.String("user_id", userID), slog.Bool("active", active))
	return nil
}

// Delete removes a user record permanently.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	l := slogx.FromContext(ctx)

	if err := s.Store.Users().Delete(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchUser
		}
		return err
	}

	l.Info("user deleted", slog.String("user_id", userID))
	return nil
}
