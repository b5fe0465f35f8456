package domain

import "time"

// TokenPair is what authentication endpoints hand back: a short-lived access
// token and a longer-lived refresh token, both stateless JWTs.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresIn is the access token lifetime, surfaced so clients can
	// schedule refreshes without decoding the JWT.
	AccessExpiresIn time.Duration
}
