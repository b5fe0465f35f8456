package domain

import "time"

// Roles a user can hold. There is no role table; the set is closed.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the identity record. PasswordHash only ever holds a bcrypt hash;
// plaintext never reaches the store. The reset-token pair is either both nil
// (no outstanding reset) or both set.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time

	// PasswordChangedAt is stamped by password change/reset only. Session
	// tokens issued before it are rejected, which stands in for server-side
	// revocation.
	PasswordChangedAt *time.Time

	// PasswordResetToken holds the SHA-256 fingerprint of an issued reset
	// token, never the token itself.
	PasswordResetToken   *string
	PasswordResetExpires *time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// PublicUser is the JSON view of a user. Credential and reset columns are
// structurally absent so they cannot leak through an encoder.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the sanitized view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
