package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/project"
	"github.com/irfansh/bugtracker/internal/user"
)

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*user.User, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	Logout(ctx context.Context, userID int64) error
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// Credentials is what the store hands back for a login attempt.
type Credentials struct {
	UserID       int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
}

// Session mirrors the persisted refresh credential.
type Session struct {
	UserID       int64
	RefreshToken string
	ExpiresAt    time.Time
}

type RepositoryAPI interface {
	GetCredentialsByEmail(ctx context.Context, email string) (*Credentials, error)
	CreateUser(ctx context.Context, name, email, passwordHash, role string) (*user.User, error)
	SaveSession(ctx context.Context, userID int64, refreshToken string, expiresAt time.Time) error
	GetSession(ctx context.Context, userID int64) (*Session, error)
	DeleteSession(ctx context.Context, userID int64) error
}

// ProjectLister supplies the projects visible to a freshly authenticated
// principal, returned alongside the tokens.
type ProjectLister interface {
	VisibleProjects(ctx context.Context, p authz.Principal) ([]*project.Project, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(p authz.Principal) (string, error)
	GenerateRefreshToken(email string) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*RefreshClaims, error)
	RefreshTTL() time.Duration
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginResult is the login response body: principal identity, both tokens,
// and the projects the principal may see.
type LoginResult struct {
	ID          int64              `json:"id"`
	Email       string             `json:"email"`
	Role        string             `json:"role"`
	AccessToken string             `json:"access_token"`
	Refresh     string             `json:"refresh_token"`
	Projects    []*project.Project `json:"projects"`
}

// Claims carried by access tokens.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims carried by refresh tokens: email only.
type RefreshClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
