package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const Issuer = "feedhub"

var ErrInvalidToken = errors.New("invalid token")

// TokenSigner issues and validates HS256 bearer tokens for the admin API
type TokenSigner struct {
	secretKey []byte
	now       func() time.Time
}

func NewTokenSigner(secretKey []byte) (*TokenSigner, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	return &TokenSigner{secretKey: secretKey, now: time.Now}, nil
}

// Issue signs a token for subject with the given role, valid for ttl
func (s *TokenSigner) Issue(subject string, role Role, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject must not be empty")
	}
	now := s.now()
	claims := &JWTClaims{
		RoleValue: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token, checks its signature, expiry and issuer and
// returns its claims
func (s *TokenSigner) Validate(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := ParseRole(string(claims.RoleValue)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
