package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	refreshTokenTTL   = 30 * 24 * time.Hour
)

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult carries the authenticated user together with a fresh refresh
// token in plain text. Only its bcrypt hash is stored.
type AuthResult struct {
	User         *models.User
	RefreshToken string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, userID int, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, userID int) error
}

type authService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.RefreshTokenRepository
	logger    *slog.Logger
}

func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.RefreshTokenRepository,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Nickname = strings.TrimSpace(input.Nickname)

	if len(input.Password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Nickname:     input.Nickname,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         models.RolePlayer,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) || errors.Is(err, repositories.ErrUserNicknameConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", slog.Int("user_id", user.ID), slog.String("nickname", user.Nickname))

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAuthUserInactive
	}

	now := time.Now().UTC()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", slog.Int("user_id", user.ID), slog.Any("error", err))
	}

	refreshToken, err := s.issueRefreshToken(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResult{User: user, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a valid refresh token for a new one. The presented token
// is compared against every active hash for the user and revoked on use, so
// each token works exactly once.
func (s *authService) Refresh(ctx context.Context, userID int, refreshToken string) (*AuthResult, error) {
	tokens, err := s.tokenRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refresh tokens: %w", err)
	}

	now := time.Now().UTC()
	var matched *models.RefreshToken
	for _, token := range tokens {
		if !token.Active(now) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(token.TokenHash), []byte(refreshToken)) == nil {
			matched = token
			break
		}
	}
	if matched == nil {
		return nil, ErrAuthInvalidRefresh
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidRefresh
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if !user.IsActive {
		return nil, ErrAuthUserInactive
	}

	if err := s.tokenRepo.Revoke(ctx, matched.ID, now); err != nil {
		return nil, fmt.Errorf("failed to revoke used refresh token: %w", err)
	}

	newToken, err := s.issueRefreshToken(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResult{User: user, RefreshToken: newToken}, nil
}

func (s *authService) Logout(ctx context.Context, userID int) error {
	if err := s.tokenRepo.RevokeAllForUser(ctx, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	s.logger.Info("user logged out", slog.Int("user_id", userID))
	return nil
}

func (s *authService) issueRefreshToken(ctx context.Context, userID int, now time.Time) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	plain := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash refresh token: %w", err)
	}

	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: string(hash),
		ExpiresAt: now.Add(refreshTokenTTL),
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return "", err
	}
	return plain, nil
}
