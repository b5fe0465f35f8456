package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/internal/api/store"
	"github.com/kavineksith/user-management-api/pkg/cryptox"
	"github.com/kavineksith/user-management-api/pkg/idx"
	"github.com/kavineksith/user-management-api/pkg/jwtx"
	"github.com/kavineksith/user-management-api/pkg/slogx"
)

// ResetTokenTTL is how long a password-reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

var (
	// ErrBadCredentials covers both unknown email and wrong password so the
	// login response cannot be used to probe which emails are registered.
	ErrBadCredentials = errors.New("bad_credentials")

	ErrDuplicateEmail    = errors.New("duplicate_email")
	ErrNoSuchUser        = errors.New("no_such_user")
	ErrResetTokenInvalid = errors.New("reset_token_invalid")
	ErrWrongPassword     = errors.New("wrong_password")
	ErrAccountDisabled   = errors.New("account_disabled")
)

// AccountService owns the credential lifecycle: registration, login, token
// refresh and the three password flows (forgot, reset, change). All hashing
// happens here; the store only ever sees bcrypt hashes and SHA-256
// fingerprints.
type AccountService struct {
	Store  store.Store
	Tokens *TokenService
}

// Register creates a user with the default role and signs their first token
// pair. Email uniqueness is ultimately enforced by the database constraint;
// the GetByEmail probe just gives the common case a cleaner error path.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	if _, err := s.Store.Users().GetByEmail(ctx, email); err == nil {
		return domain.User{}, domain.TokenPair{}, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.TokenPair{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.Store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// Lost a race with a concurrent registration for the same email.
			return domain.User{}, domain.TokenPair{}, ErrDuplicateEmail
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(u.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("user registered", slog.String("user_id", u.ID))
	return u, pair, nil
}

// Login verifies an email/password pair and issues tokens. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrBadCredentials
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("login failed", slog.String("user_id", u.ID))
		return domain.User{}, domain.TokenPair{}, ErrBadCredentials
	}

	if !u.IsActive {
		return domain.User{}, domain.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.Tokens.IssuePair(u.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("user logged in", slog.String("user_id", u.ID))
	return u, pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The token must be
// refresh-kind, unexpired, belong to an existing active user and postdate
// their last password change.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (domain.User, domain.TokenPair, error) {
	claims, err := s.Tokens.Signer.Verify(refreshToken)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, ErrBadCredentials
	}
	if !claims.IsRefresh() {
		// An access token presented for refresh is a protocol violation.
		return domain.User{}, domain.TokenPair{}, ErrBadCredentials
	}

	u, err := s.Store.Users().GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrNoSuchUser
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if !u.IsActive {
		return domain.User{}, domain.TokenPair{}, ErrAccountDisabled
	}
	if TokenPredatesPasswordChange(claims, &u) {
		return domain.User{}, domain.TokenPair{}, ErrBadCredentials
	}

	pair, err := s.Tokens.IssuePair(u.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	return u, pair, nil
}

// ForgotPassword issues a reset token for the account behind email. Only the
// SHA-256 fingerprint is persisted; the plaintext is returned exactly once
// for delivery to the user and cannot be recovered afterwards.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (string, error) {
	l := slogx.FromContext(ctx)
	email = normalizeEmail(email)

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoSuchUser
		}
		return "", err
	}

	token, err := cryptox.GenerateToken(cryptox.ResetTokenSize)
	if err != nil {
		return "", err
	}

	expires := time.Now().UTC().Add(ResetTokenTTL)
	if err := s.Store.Users().SetResetToken(ctx, u.ID, cryptox.FingerprintToken(token), expires); err != nil {
		return "", err
	}

	l.Info("password reset requested", slog.String("user_id", u.ID))
	return token, nil
}

// ResetPassword consumes a reset token and sets a new password, stamping
// password_changed_at so outstanding session tokens die with the old
// password. Expired and unknown tokens fail identically.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := time.Now().UTC()

	u, err := s.Store.Users().GetByResetToken(ctx, cryptox.FingerprintToken(token), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrResetTokenInvalid
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := s.Store.Users().ResetPassword(ctx, u.ID, hash, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(u.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("password reset completed", slog.String("user_id", u.ID))
	u.PasswordChangedAt = &now
	return u, pair, nil
}

// UpdatePassword changes a logged-in user's password after re-verifying the
// current one. A fresh token pair is issued because the change invalidates
// every token signed before it.
func (s *AccountService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) (domain.User, domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.TokenPair{}, ErrNoSuchUser
		}
		return domain.User{}, domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(currentPassword, u.PasswordHash); err != nil {
		return domain.User{}, domain.TokenPair{}, ErrWrongPassword
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	now := time.Now().UTC()
	if err := s.Store.Users().UpdatePassword(ctx, u.ID, hash, now); err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	pair, err := s.Tokens.IssuePair(u.ID)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, err
	}

	l.Info("password changed", slog.String("user_id", u.ID))
	u.PasswordChangedAt = &now
	return u, pair, nil
}

// TokenPredatesPasswordChange reports whether the token's issue time falls
// strictly before the user's last password change. Comparison is at second
// precision because JWT iat has no finer resolution, which also keeps the
// pair issued together with the change itself valid.
func TokenPredatesPasswordChange(claims jwtx.Claims, u *domain.User) bool {
	if u.PasswordChangedAt == nil || claims.IssuedAt == nil {
		return false
	}
	return claims.IssuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
