package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/submity/internal/app/models"
	"github.com/yigit/submity/internal/app/models/dto"
	"github.com/yigit/submity/internal/app/repositories"
	"github.com/yigit/submity/internal/pkg/apperrors"
	"github.com/yigit/submity/internal/pkg/auth"
	"github.com/yigit/submity/internal/pkg/codegen"
	"github.com/yigit/submity/internal/pkg/validation"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo    *repositories.UserRepository
	sessionRepo *repositories.SessionRepository
	jwtService  *auth.JWTService
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo *repositories.UserRepository,
	sessionRepo *repositories.SessionRepository,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtService:  jwtService,
		logger:      logger,
		now:         time.Now,
	}
}

// validateEmail validates an email address
func (s *AuthService) validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError("email cannot be empty")
	}
	if !validation.IsValidEmail(email) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidEmail, email)
	}
	return nil
}

// validatePassword checks if password meets requirements
func (s *AuthService) validatePassword(password string) error {
	if password == "" {
		return apperrors.NewValidationError("password cannot be empty")
	}
	if !validation.NewStringValidation(password).WithMinLength(validation.PasswordMinLength).Validate() {
		return fmt.Errorf("%w: password must be at least %d characters long", apperrors.ErrInvalidPassword, validation.PasswordMinLength)
	}
	return nil
}

// Register creates a student account and opens a session for it
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name cannot be empty")
	}
	if err := s.validateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(req.Password); err != nil {
		return nil, err
	}

	email := models.NormalizeEmail(req.Email)
	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cred := &models.Credential{
		User: models.User{
			ID:        codegen.GenerateUserID(now),
			Email:     email,
			Name:      name,
			Role:      models.RoleStudent,
			CreatedAt: now,
		},
		Password: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, cred); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}

	s.logger.Info().Str("userID", cred.ID).Msg("Student registered")
	return s.openSession(ctx, cred.PublicUser())
}

// Login checks credentials and opens a session. An unknown email and a wrong
// password fail with different errors.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if err := s.validateEmail(req.Email); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, apperrors.NewValidationError("password cannot be empty")
	}

	cred, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if cred == nil {
		return nil, apperrors.ErrAccountNotFound
	}
	if !auth.CheckPassword(cred.Password, req.Password) {
		s.logger.Debug().Str("userID", cred.ID).Msg("Login with incorrect password")
		return nil, apperrors.ErrIncorrectPassword
	}

	return s.openSession(ctx, cred.PublicUser())
}

func (s *AuthService) openSession(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	now := s.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: s.jwtService.ExpiresAt(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token, expiresIn, err := s.jwtService.GenerateToken(user, session.ID)
	if err != nil {
		_ = s.sessionRepo.Delete(ctx, session.ID)
		return nil, err
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		User: user,
	}, nil
}

// Authenticate validates a token and checks its session is still open
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, claims.SessionID())
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil || session.UserID != claims.UserID {
		return nil, apperrors.ErrSessionNotFound
	}
	return session, nil
}

// Logout closes one session. Closing an unknown session is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to close session: %w", err)
	}
	s.logger.Info().Str("sessionID", sessionID).Msg("Session closed")
	return nil
}

// CurrentUser returns the user stored with a session
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, apperrors.ErrSessionNotFound
	}

	cred, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if cred == nil {
		return session.User(), nil
	}
	return cred.PublicUser(), nil
}

// EnsureAccount registers an account unless the email is already taken
func (s *AuthService) EnsureAccount(ctx context.Context, email, password, name string) (created bool, err error) {
	_, err = s.Register(ctx, &dto.RegisterRequest{Email: email, Password: password, Name: name})
	if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
