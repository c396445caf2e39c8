package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/Templasan/MarketPlacer/common/errors"
	"github.com/Templasan/MarketPlacer/models"
	"github.com/Templasan/MarketPlacer/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uuid.UUID, role string) (string, time.Time, error)
}

type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Get(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.UpdateProfileRequest) (*models.User, error)
	Deactivate(ctx context.Context, id uuid.UUID, caller models.Caller) error
	ChangePassword(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.ChangePasswordRequest) error
	// EnsureActive fails when the account behind a still-valid token is gone or deactivated.
	EnsureActive(ctx context.Context, id uuid.UUID) error
}

type userServiceImpl struct {
	store  repository.Store
	tokens TokenIssuer
	clock  Clock
	logger *zap.Logger
}

func NewUserService(store repository.Store, tokens TokenIssuer, clock Clock, logger *zap.Logger) UserService {
	return &userServiceImpl{store: store, tokens: tokens, clock: clock, logger: logger}
}

func (s *userServiceImpl) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, apperrors.Validation("name and email are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperrors.Validation("password must be at least %d characters long", minPasswordLength)
	}

	role := models.RoleComum
	if req.Role != "" {
		parsed, ok := models.ParseRole(req.Role)
		if !ok {
			return nil, apperrors.Validation("unknown role %q", req.Role)
		}
		if parsed == models.RoleAdmin {
			return nil, apperrors.Forbidden("admin accounts cannot self-register")
		}
		role = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, storageFailure(s.logger, "failed to hash password", err)
	}

	now := s.clock.Now()
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.store.Users().Create(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.Conflict("email already registered")
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to register user", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	return user, nil
}

func (s *userServiceImpl) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.store.Users().FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if !user.Active {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, storageFailure(s.logger, "failed to issue token", err)
	}
	return &models.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

func (s *userServiceImpl) load(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.User, error) {
	if err := RequireOwner(id, caller); err != nil {
		return nil, err
	}
	user, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to load user", err)
	}
	return user, nil
}

func (s *userServiceImpl) Get(ctx context.Context, id uuid.UUID, caller models.Caller) (*models.User, error) {
	return s.load(ctx, id, caller)
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.Validation("cannot update a deactivated account")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.Validation("name is required")
		}
		user.Name = name
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	user.UpdatedAt = s.clock.Now()

	err = s.store.Users().Update(ctx, user)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.Conflict("email already registered")
	}
	if err != nil {
		return nil, storageFailure(s.logger, "failed to update user", err)
	}
	return user, nil
}

func (s *userServiceImpl) Deactivate(ctx context.Context, id uuid.UUID, caller models.Caller) error {
	user, err := s.load(ctx, id, caller)
	if err != nil {
		return err
	}
	if !user.Active {
		return nil
	}
	user.Active = false
	user.UpdatedAt = s.clock.Now()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return storageFailure(s.logger, "failed to deactivate user", err)
	}
	s.logger.Info("User deactivated", zap.String("user_id", id.String()), zap.String("actor_id", caller.ID.String()))
	return nil
}

func (s *userServiceImpl) EnsureActive(ctx context.Context, id uuid.UUID) error {
	user, err := s.store.Users().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.Unauthorized("account not found")
	}
	if err != nil {
		return storageFailure(s.logger, "failed to load user", err)
	}
	if !user.Active {
		return apperrors.Forbidden("account is deactivated")
	}
	return nil
}

// ChangePassword is restricted to the account owner, admins included.
func (s *userServiceImpl) ChangePassword(ctx context.Context, id uuid.UUID, caller models.Caller, req *models.ChangePasswordRequest) error {
	if caller.ID != id {
		return apperrors.Forbidden("you can only change your own password")
	}
	user, err := s.load(ctx, id, caller)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return apperrors.Validation("current password is incorrect")
	}
	if len(req.NewPassword) < minPasswordLength {
		return apperrors.Validation("password must be at least %d characters long", minPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return storageFailure(s.logger, "failed to hash password", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.clock.Now()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return storageFailure(s.logger, "failed to change password", err)
	}
	return nil
}
