package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

var _ port.TokenService = (*JWTService)(nil)

var ErrTokenKind = errors.New("unexpected token type")

type claims struct {
	UserID int64            `json:"user_id"`
	Kind   domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 bearer tokens.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (s *JWTService) AccessTTL() time.Duration { return s.accessTTL }

func (s *JWTService) Issue(userID int64) (domain.TokenPair, error) {
	access, err := s.sign(userID, domain.TokenAccess, s.accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.sign(userID, domain.TokenRefresh, s.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *JWTService) IssueAccess(userID int64) (string, error) {
	return s.sign(userID, domain.TokenAccess, s.accessTTL)
}

func (s *JWTService) sign(userID int64, kind domain.TokenKind, ttl time.Duration) (string, error) {
	now := s.now()
	c := claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return token, nil
}

func (s *JWTService) Validate(token string, kind domain.TokenKind) (domain.TokenClaims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}
	if c.Kind != kind {
		return domain.TokenClaims{}, ErrTokenKind
	}
	return domain.TokenClaims{
		ID:        c.ID,
		UserID:    c.UserID,
		Kind:      c.Kind,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
