package user

import (
	"context"
	"log/slog"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
)

// Repository is the data access contract for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error)
	Update(ctx context.Context, id int64, name, email, role *string, passwordHash *string) (*User, error)
	Delete(ctx context.Context, id int64) error
}

// PasswordHasher lets the service re-hash on password change without owning
// bcrypt settings; auth provides the implementation.
type PasswordHasher func(password string) (string, error)

type Service struct {
	repo   Repository
	hash   PasswordHasher
	logger *slog.Logger
}

func NewService(repo Repository, hash PasswordHasher, logger *slog.Logger) *Service {
	return &Service{repo: repo, hash: hash, logger: logger}
}

// List returns every user; admins only.
func (s *Service) List(ctx context.Context, p authz.Principal) ([]*User, error) {
	if !authz.CanManageUsers(p) {
		return nil, apperrors.ErrForbidden
	}
	return s.repo.GetAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, p authz.Principal, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Update applies self or admin edits. Role changes are admin-only; a supplied
// password is re-hashed, an omitted one leaves the stored hash untouched.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, dto UpdateUserDTO) (*User, error) {
	if !authz.CanUpdateUser(p, id) {
		return nil, apperrors.ErrForbidden
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.Role != nil {
		if p.Role != authz.RoleAdmin {
			return nil, apperrors.ErrForbidden
		}
		if _, err := authz.ParseRole(*dto.Role); err != nil {
			return nil, apperrors.NewValidationError("invalid role", apperrors.ErrCodeInvalidRole)
		}
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if dto.Email != nil {
		taken, err := s.repo.EmailTaken(ctx, *dto.Email, id)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to check email uniqueness", err)
		}
		if taken {
			return nil, apperrors.ErrEmailTaken
		}
	}

	var passwordHash *string
	if dto.Password != nil {
		hashed, err := s.hash(*dto.Password)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to hash password", err)
		}
		passwordHash = &hashed
	}

	updated, err := s.repo.Update(ctx, id, dto.Name, dto.Email, dto.Role, passwordHash)
	if err != nil {
		s.logger.Error("failed to update user", "user_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "by", p.UserID)
	return updated, nil
}

// Delete removes a user; admins only. Projects and bugs referencing the user
// keep their ids — dangling references are the documented policy.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if !authz.CanManageUsers(p) {
		return apperrors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deleted", "user_id", id, "by", p.UserID)
	return nil
}
