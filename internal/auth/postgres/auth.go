package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/auth"
	sessionmodel "github.com/irfansh/bugtracker/internal/core/datamodel/session"
	usermodel "github.com/irfansh/bugtracker/internal/core/datamodel/user"
	"github.com/irfansh/bugtracker/internal/user"
)

type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.RepositoryAPI {
	return &AuthRepository{db: db}
}

func (r *AuthRepository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var model usermodel.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.NewInternalError("failed to look up credentials", err)
	}
	return &auth.Credentials{
		UserID:       model.ID,
		Name:         model.Name,
		Email:        model.Email,
		PasswordHash: model.PasswordHash,
		Role:         model.Role,
	}, nil
}

func (r *AuthRepository) CreateUser(ctx context.Context, name, email, passwordHash, role string) (*user.User, error) {
	model := &usermodel.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicate(err) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, apperrors.NewInternalError("failed to create user", err)
	}
	return user.FromDataModel(model), nil
}

// SaveSession upserts on user_id: logging in again replaces the previous
// session, invalidating its refresh token.
func (r *AuthRepository) SaveSession(ctx context.Context, userID int64, refreshToken string, expiresAt time.Time) error {
	model := &sessionmodel.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"refresh_token", "expires_at", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		return apperrors.NewInternalError("failed to save session", err)
	}
	return nil
}

func (r *AuthRepository) GetSession(ctx context.Context, userID int64) (*auth.Session, error) {
	var model sessionmodel.Session
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.NewInternalError("failed to load session", err)
	}
	return &auth.Session{
		UserID:       model.UserID,
		RefreshToken: model.RefreshToken,
		ExpiresAt:    model.ExpiresAt,
	}, nil
}

func (r *AuthRepository) DeleteSession(ctx context.Context, userID int64) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&sessionmodel.Session{}).Error; err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	return nil
}

// isDuplicate matches unique violations across postgres and the sqlite driver
// used in tests.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
