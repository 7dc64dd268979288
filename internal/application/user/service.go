package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shelfswap/shelfswap/internal/apperr"
	domainUser "github.com/shelfswap/shelfswap/internal/domain/user"
)

// Service handles user account management.
type Service struct {
	repo   domainUser.Repository
	logger zerolog.Logger
}

// NewService creates a user service.
func NewService(repo domainUser.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "user").Logger(),
	}
}

// Register creates a new member account.
func (s *Service) Register(ctx context.Context, username, password string) (*domainUser.User, error) {
	username = domainUser.NormalizeUsername(username)
	if err := domainUser.ValidateUsername(username); err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}
	if err := domainUser.ValidatePassword(password, username); err != nil {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "%s", err.Error())
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing != nil {
		return nil, apperr.Conflict(apperr.CodeUsernameTaken, "username already taken")
	}

	hash, err := domainUser.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := time.Now().UTC()
	u := &domainUser.User{
		UserID:       uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         domainUser.RoleMember,
		Status:       domainUser.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Str("username", u.Username).Msg("user registered")
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

// List returns users matching the filter. Admin only.
func (s *Service) List(ctx context.Context, actor domainUser.Actor, filter domainUser.Filter, limit, offset int) ([]*domainUser.User, error) {
	if !actor.IsArbitrator() {
		return nil, apperr.Authorization(apperr.CodeForbidden, "admin role required")
	}
	users, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

// Suspend marks a user account suspended. Admin only.
func (s *Service) Suspend(ctx context.Context, actor domainUser.Actor, userID uuid.UUID) (*domainUser.User, error) {
	return s.setStatus(ctx, actor, userID, domainUser.StatusSuspended)
}

// Unsuspend reactivates a suspended account. Admin only.
func (s *Service) Unsuspend(ctx context.Context, actor domainUser.Actor, userID uuid.UUID) (*domainUser.User, error) {
	return s.setStatus(ctx, actor, userID, domainUser.StatusActive)
}

func (s *Service) setStatus(ctx context.Context, actor domainUser.Actor, userID uuid.UUID, status domainUser.Status) (*domainUser.User, error) {
	if !actor.IsArbitrator() {
		return nil, apperr.Authorization(apperr.CodeForbidden, "admin role required")
	}
	if actor.UserID == userID {
		return nil, apperr.Validation(apperr.CodeInvalidParam, "cannot change own status")
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		return nil, apperr.Internal(err)
	}
	u.Status = status
	u.UpdatedAt = time.Now().UTC()

	s.logger.Info().
		Str("user_id", userID.String()).
		Str("status", string(status)).
		Str("actor_id", actor.UserID.String()).
		Msg("user status changed")
	return u, nil
}
