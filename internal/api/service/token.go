package service

import (
	"github.com/kavineksith/user-management-api/internal/api/domain"
	"github.com/kavineksith/user-management-api/pkg/jwtx"
)

// TokenService issues the access/refresh token pair handed out on login,
// registration, password reset and refresh. It is a thin wrapper around the
// signer so handlers never touch signing details directly.
type TokenService struct {
	Signer *jwtx.Signer
}

// IssuePair signs a fresh access + refresh pair for the given user.
func (s *TokenService) IssuePair(userID string) (domain.TokenPair, error) {
	access, err := s.Signer.SignAccess(userID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, err := s.Signer.SignRefresh(userID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresIn: s.Signer.AccessTTL,
	}, nil
}
