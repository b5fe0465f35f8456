package store

import (
	"context"
	"errors"
	"time"

	"github.com/kavineksith/user-management-api/internal/api/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement it. Sub-repositories keep concerns tidy and let a transaction
// expose the same surface as the root store.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST Commit() or Rollback() the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise. Preferred over Tx for most callers.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential store for user records. Password and reset-token
// hashing happen in the service layer; this interface only ever sees hashes.
type Users interface {
	// Create inserts a new user. The email column carries a UNIQUE
	// constraint; violating it returns ErrAlreadyExists. That constraint,
	// not the caller's pre-check, is what makes concurrent registration of
	// the same email safe.
	Create(ctx context.Context, u domain.User) error

	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// List returns a page of users ordered by creation, without password or
	// reset-token material.
	List(ctx context.Context, page, limit int) ([]domain.User, error)

	// UpdateProfile mutates exactly the allow-listed profile fields.
	// Password, role and active status have dedicated methods and never go
	// through here.
	UpdateProfile(ctx context.Context, id, username, email string) error

	// UpdatePassword sets a new password hash and stamps
	// password_changed_at, retroactively invalidating older session tokens.
	UpdatePassword(ctx context.Context, id, newHash string, changedAt time.Time) error

	// SetResetToken stores the fingerprint and expiry of an issued reset
	// token, overwriting any previous one.
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error

	// GetByResetToken resolves an unexpired reset-token fingerprint to its
	// user. Expired and unknown fingerprints both return ErrNotFound, so
	// callers cannot tell the two apart.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error)

	// ResetPassword consumes an outstanding reset token: new hash, reset
	// columns cleared, password_changed_at stamped.
	ResetPassword(ctx context.Context, id, newHash string, changedAt time.Time) error

	// SetRole and SetActive are administrative mutations, deliberately kept
	// off the generic profile-update path.
	SetRole(ctx context.Context, id, role string) error
	SetActive(ctx context.Context, id string, active bool) error

	Delete(ctx context.Context, id string) error
}
