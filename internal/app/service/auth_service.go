package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/oidc"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrOIDCDisabled       = errors.New("oidc login is not configured")
)

// TokenRevoker blacklists token ids until they expire.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdentityVerifier checks an ID token from an external provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.Identity, error)
}

type AuthService interface {
	Register(ctx context.Context, email, password, name, phone string) (*model.User, *util.TokenPair, error)
	Login(ctx context.Context, email, password string) (*model.User, *util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, claims *util.Claims) error
	LoginWithOIDC(ctx context.Context, rawIDToken string) (*model.User, *util.TokenPair, error)
	GetUserByID(ctx context.Context, id uint) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, name, phone string) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	revoker       TokenRevoker
	verifier      IdentityVerifier
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService wires the account flows. revoker and verifier may be nil,
// which disables logout revocation and OIDC login respectively.
func NewAuthService(
	userRepo repository.UserRepository,
	revoker TokenRevoker,
	verifier IdentityVerifier,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		revoker:       revoker,
		verifier:      verifier,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

func (s *authService) Register(ctx context.Context, email, password, name, phone string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
	})

	if len(password) < util.MinPasswordLength {
		return nil, nil, newValidationError("password", fmt.Sprintf("must be at least %d characters", util.MinPasswordLength))
	}

	existingUser, err := s.userRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}
	if existingUser != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"email":   email,
	})
	return user, tokens, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*model.User, *util.TokenPair, error) {
	email = normalizeEmail(email)
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"email": email,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"email": email,
		})
		return nil, nil, err
	}

	// OIDC-only accounts have no password hash and cannot log in this way.
	if user.PasswordHash == "" || !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, tokens, nil
}

func (s *authService) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.revoker == nil || tokenID == "" {
		return false, nil
	}
	return s.revoker.IsRevoked(ctx, tokenID)
}

// Refresh exchanges a refresh token for a new pair. The used refresh token is
// revoked so it cannot be replayed.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != util.TokenTypeRefresh {
		return nil, util.ErrInvalidToken
	}

	revoked, err := s.isRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		logger.Warn("Refresh rejected: token revoked", map[string]interface{}{
			"user_id": claims.UserID,
		})
		return nil, ErrTokenRevoked
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, claims.ID, claims.TokenTTL()); err != nil {
			return nil, err
		}
	}
	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, claims *util.Claims) error {
	if s.revoker == nil {
		logger.Debug("Logout without revocation store", map[string]interface{}{
			"user_id": claims.UserID,
		})
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.TokenTTL()); err != nil {
		logger.Error("Failed to revoke token on logout", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

// LoginWithOIDC finds the account by subject, then by email, and creates one
// when neither exists.
func (s *authService) LoginWithOIDC(ctx context.Context, rawIDToken string) (*model.User, *util.TokenPair, error) {
	if s.verifier == nil {
		return nil, nil, ErrOIDCDisabled
	}

	identity, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logger.Warn("OIDC token rejected", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil, fmt.Errorf("%w: %v", util.ErrInvalidToken, err)
	}

	user, err := s.userRepo.FindByOIDCSubject(identity.Subject)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.linkOrCreateOIDCUser(identity)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in with OIDC", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, tokens, nil
}

func (s *authService) linkOrCreateOIDCUser(identity *oidc.Identity) (*model.User, error) {
	subject := identity.Subject

	user, err := s.userRepo.FindByEmail(identity.Email)
	if err == nil {
		// Only a provider-verified email may take over an existing account.
		if !identity.EmailVerified {
			return nil, ErrEmailAlreadyExists
		}
		user.OIDCSubject = &subject
		if err := s.userRepo.Update(user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := identity.Name
	if name == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}
	user = &model.User{
		Email:       identity.Email,
		Name:        name,
		Role:        model.RoleUser,
		OIDCSubject: &subject,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	logger.Info("Created user from OIDC identity", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *authService) GetUserByID(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uint, name, phone string) (*model.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := false
	if name = strings.TrimSpace(name); name != "" && name != user.Name {
		user.Name = name
		updated = true
	}
	if phone = strings.TrimSpace(phone); phone != "" && phone != user.Phone {
		user.Phone = phone
		updated = true
	}
	if !updated {
		return user, nil
	}

	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}
