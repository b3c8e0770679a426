package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/aircraft-factory/internal/core/domain"
	"github.com/rl1809/aircraft-factory/internal/port"
)

type AccountService struct {
	db     port.DatabaseRepository
	cache  port.CacheRepository
	tokens port.TokenService
	hasher port.PasswordHasher
	now    func() time.Time
}

func NewAccountService(db port.DatabaseRepository, cache port.CacheRepository, tokens port.TokenService, hasher port.PasswordHasher) *AccountService {
	return &AccountService{db: db, cache: cache, tokens: tokens, hasher: hasher, now: time.Now}
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.User, domain.TokenPair, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, domain.TokenPair{}, domain.Validationf("username and password are required")
	}

	user, err := s.db.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive || !s.hasher.Compare(user.PasswordHash, password) {
		return nil, domain.TokenPair{}, domain.Unauthenticatedf("invalid username or password")
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return user, pair, nil
}

// Logout denylists the access token until it would have expired anyway. An
// already invalid token is not an error.
func (s *AccountService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tokens.Validate(accessToken, domain.TokenAccess)
	if err != nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.validate(ctx, refreshToken, domain.TokenRefresh)
	if err != nil {
		return "", err
	}
	if _, err := s.activeUser(ctx, claims.UserID); err != nil {
		return "", err
	}
	access, err := s.tokens.IssueAccess(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("issue access token: %w", err)
	}
	return access, nil
}

// Authenticate resolves an access token to the capabilities of its user.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (Capabilities, error) {
	if accessToken == "" {
		return Capabilities{}, domain.Unauthenticatedf("authentication credentials were not provided")
	}
	claims, err := s.validate(ctx, accessToken, domain.TokenAccess)
	if err != nil {
		return Capabilities{}, err
	}
	user, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return Capabilities{}, err
	}
	return ResolveCapabilities(*user), nil
}

func (s *AccountService) validate(ctx context.Context, token string, kind domain.TokenKind) (domain.TokenClaims, error) {
	claims, err := s.tokens.Validate(token, kind)
	if err != nil {
		return domain.TokenClaims{}, domain.Unauthenticatedf("token is invalid or expired")
	}
	revoked, err := s.cache.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return domain.TokenClaims{}, fmt.Errorf("check token: %w", err)
	}
	if revoked {
		return domain.TokenClaims{}, domain.Unauthenticatedf("token has been revoked")
	}
	return claims, nil
}

func (s *AccountService) activeUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.db.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, domain.Unauthenticatedf("user not found or inactive")
	}
	return user, nil
}

func (s *AccountService) ListUsers(ctx context.Context, caps Capabilities, q domain.ListQuery) (domain.Page[domain.User], error) {
	if err := caps.Require(domain.PermManageUsers); err != nil {
		return domain.Page[domain.User]{}, err
	}
	return s.db.ListUsers(ctx, q.Normalize())
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.db.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFoundf("user %d not found", id)
	}
	return user, nil
}

func (s *AccountService) CreateUser(ctx context.Context, caps Capabilities, in domain.UserInput) (*domain.User, error) {
	if err := caps.Require(domain.PermManageUsers); err != nil {
		return nil, err
	}
	if in.Username == nil || strings.TrimSpace(*in.Username) == "" {
		return nil, domain.Validationf("username is required")
	}
	if in.Password == nil || *in.Password == "" {
		return nil, domain.Validationf("password is required")
	}

	user := domain.User{IsActive: true}
	if err := s.apply(ctx, &user, in); err != nil {
		return nil, err
	}
	if err := s.db.CreateUser(ctx, &user); err != nil {
		if errors.Is(err, port.ErrDuplicate) {
			return nil, domain.Validationf("username %s is already taken", user.Username)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// UpdateUser applies the non-nil fields of in.
func (s *AccountService) UpdateUser(ctx context.Context, caps Capabilities, id int64, in domain.UserInput) (*domain.User, error) {
	if err := caps.Require(domain.PermManageUsers); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Username != nil && strings.TrimSpace(*in.Username) == "" {
		return nil, domain.Validationf("username cannot be empty")
	}
	if err := s.apply(ctx, user, in); err != nil {
		return nil, err
	}
	if err := s.db.UpdateUser(ctx, *user); err != nil {
		if errors.Is(err, port.ErrDuplicate) {
			return nil, domain.Validationf("username %s is already taken", user.Username)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *AccountService) apply(ctx context.Context, user *domain.User, in domain.UserInput) error {
	if deref(in.Password) != deref(in.ConfirmPassword) {
		return domain.Validationf("passwords do not match")
	}
	if in.Username != nil {
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsSuperuser != nil {
		user.IsSuperuser = *in.IsSuperuser
	}
	if in.TeamID != nil && *in.TeamID != 0 {
		team, err := s.db.GetTeam(ctx, *in.TeamID)
		if err != nil {
			return fmt.Errorf("get team: %w", err)
		}
		if team == nil {
			return domain.Validationf("team %d does not exist", *in.TeamID)
		}
		user.Team = team
	}
	if in.Password != nil && *in.Password != "" {
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *AccountService) DeleteUser(ctx context.Context, caps Capabilities, id int64) error {
	if err := caps.Require(domain.PermManageUsers); err != nil {
		return err
	}
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user.IsSuperuser {
		return domain.Conflictf("superusers cannot be deleted")
	}
	if err := s.db.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, port.ErrReferenced) {
			return domain.Conflictf("user %s owns parts or assemblies and cannot be deleted", user.Username)
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *AccountService) ListTeams(ctx context.Context, caps Capabilities) ([]domain.Team, error) {
	if err := caps.Require(domain.PermManageUsers); err != nil {
		return nil, err
	}
	return s.db.ListTeams(ctx)
}
