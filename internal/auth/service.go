package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/user"
)

// Service performs authentication business logic: registration, login with
// session persistence, refresh exchange, and token validation.
type Service struct {
	repo       RepositoryAPI
	projects   ProjectLister
	tokenGen   TokenGeneratorAPI
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo RepositoryAPI, projects ProjectLister, tokenGen TokenGeneratorAPI, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		projects:   projects,
		tokenGen:   tokenGen,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
	}
}

// Register creates a new user with a hashed password. Duplicate emails fail
// with a conflict; unknown roles fail validation before touching the store.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*user.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := authz.ParseRole(dto.Role)
	if err != nil {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("role must be one of: admin, manager, qa, dev, got %q", dto.Role),
			apperrors.ErrCodeInvalidRole)
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	created, err := s.repo.CreateUser(ctx, dto.Name, dto.Email, hash, role.String())
	if err != nil {
		s.logger.Warn("registration failed", "email", dto.Email, "error", err)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", created.ID, "role", created.Role)
	return created, nil
}

// Authenticate verifies credentials, issues both tokens, replaces the user's
// session row, and returns the projects visible to the principal. Unknown
// email and bad password produce the identical error so callers cannot
// enumerate accounts.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.Warn("login failed: unknown email", "email", dto.Email)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := VerifyPassword(creds.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login failed: password mismatch", "user_id", creds.UserID)
		return nil, apperrors.ErrInvalidCredentials
	}

	role, err := authz.ParseRole(creds.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("stored role is invalid", err)
	}

	principal := authz.Principal{UserID: creds.UserID, Email: creds.Email, Role: role}

	tokens, err := s.issueTokens(ctx, principal)
	if err != nil {
		return nil, err
	}

	visible, err := s.projects.VisibleProjects(ctx, principal)
	if err != nil {
		s.logger.Error("failed to list visible projects at login", "user_id", creds.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("login succeeded", "user_id", creds.UserID, "role", role)

	return &LoginResult{
		ID:          creds.UserID,
		Email:       creds.Email,
		Role:        role.String(),
		AccessToken: tokens.AccessToken,
		Refresh:     tokens.RefreshToken,
		Projects:    visible,
	}, nil
}

// RefreshTokens exchanges a refresh token for a fresh pair. The presented
// token must match the stored session row: a relogin rotates the row and so
// invalidates every older refresh token.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGen.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.repo.GetCredentialsByEmail(ctx, claims.Email)
	if err != nil {
		return AuthTokens{}, apperrors.ErrInvalidToken
	}

	sess, err := s.repo.GetSession(ctx, creds.UserID)
	if err != nil || sess.RefreshToken != refreshToken {
		s.logger.Warn("refresh rejected: no matching session", "user_id", creds.UserID)
		return AuthTokens{}, apperrors.ErrInvalidToken
	}

	role, err := authz.ParseRole(creds.Role)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("stored role is invalid", err)
	}

	return s.issueTokens(ctx, authz.Principal{UserID: creds.UserID, Email: creds.Email, Role: role})
}

// Logout drops the principal's session row; the refresh token stops working
// immediately, access tokens simply age out.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.DeleteSession(ctx, userID)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGen.ValidateAccessToken(tokenString)
}

func (s *Service) issueTokens(ctx context.Context, p authz.Principal) (AuthTokens, error) {
	accessToken, err := s.tokenGen.GenerateAccessToken(p)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to sign access token", err)
	}

	refreshToken, err := s.tokenGen.GenerateRefreshToken(p.Email)
	if err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to sign refresh token", err)
	}

	if err := s.repo.SaveSession(ctx, p.UserID, refreshToken, time.Now().Add(s.tokenGen.RefreshTTL())); err != nil {
		return AuthTokens{}, apperrors.NewInternalError("failed to persist session", err)
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ----------------- JWT token generator -----------------

func (j *JWTTokenGenerator) RefreshTTL() time.Duration {
	return j.RefreshTokenTTL
}

func (j *JWTTokenGenerator) GenerateAccessToken(p authz.Principal) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: p.UserID,
		Email:  p.Email,
		Role:   p.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", p.UserID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(email string) (string, error) {
	now := time.Now()
	claims := &RefreshClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.RefreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.AccessTokenSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.ErrInvalidToken
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.RefreshTokenSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*RefreshClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.ErrInvalidToken
}
