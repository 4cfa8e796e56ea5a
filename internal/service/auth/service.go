package auth

import (
	"context"
	"errors"

	"github.com/medigo/pharmacy-api/internal/model"
	"github.com/medigo/pharmacy-api/internal/notifier"
	"github.com/medigo/pharmacy-api/internal/repository"
	"github.com/medigo/pharmacy-api/pkg/auth"
	apperrors "github.com/medigo/pharmacy-api/pkg/errors"
	"github.com/medigo/pharmacy-api/pkg/logger"
	"github.com/medigo/pharmacy-api/pkg/security"
)

// Service handles registration and token issuance. New accounts always
// start as patients; role escalation is a separate super_admin action.
type Service struct {
	users  repository.UserRepository
	jwt    auth.JWTService
	hasher security.PasswordHasher
	mailer notifier.Mailer
	logger *logger.Logger
}

func NewService(users repository.UserRepository, jwt auth.JWTService, hasher security.PasswordHasher, mailer notifier.Mailer, log *logger.Logger) *Service {
	return &Service{
		users:  users,
		jwt:    jwt,
		hasher: hasher,
		mailer: mailer,
		logger: log,
	}
}

func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         model.RolePatient,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
		s.logger.Error(err, "failed to send welcome email", "user_id", user.ID.String())
	}

	return user, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.LoginResponse{User: user, Tokens: *tokens}, nil
}

// Refresh exchanges a valid refresh token for a new token pair. Claims
// are re-read from the store so a role change takes effect immediately.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(errors.New("account no longer exists"))
		}
		return nil, apperrors.StoreUnavailable(err)
	}

	return s.issueTokens(user)
}

func (s *Service) issueTokens(user *model.User) (*model.TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
