package project

import (
	"context"
	"log/slog"
	"time"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
)

// Repository is the data access contract for projects and their membership
// sets.
type Repository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context, scope authz.ProjectScope) ([]*Project, error)
	TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id int64) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create makes a new project. Admins and managers only; a manager creator is
// added to the managers set so the project stays visible to them.
func (s *Service) Create(ctx context.Context, p authz.Principal, dto CreateProjectDTO) (*Project, error) {
	if !authz.CanCreateProject(p) {
		return nil, apperrors.ErrForbidden
	}

	if err := dto.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.repo.TitleTaken(ctx, dto.Title, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check title uniqueness", err)
	}
	if taken {
		return nil, apperrors.ErrProjectTitleTaken
	}

	managers := dto.Managers
	if p.Role == authz.RoleManager {
		managers = append(managers, p.UserID)
	}

	now := time.Now()
	proj := &Project{
		Title:       dto.Title,
		Description: dto.Description,
		Managers:    dedupe(managers),
		Qas:         dedupe(dto.Qas),
		Developers:  dedupe(dto.Developers),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, proj); err != nil {
		s.logger.Error("failed to create project", "title", dto.Title, "error", err)
		return nil, err
	}

	s.logger.Info("project created", "project_id", proj.ID, "by", p.UserID)
	return proj, nil
}

// List returns the projects visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal) ([]*Project, error) {
	return s.repo.List(ctx, authz.ScopeForProjects(p))
}

// VisibleProjects satisfies the auth package's ProjectLister.
func (s *Service) VisibleProjects(ctx context.Context, p authz.Principal) ([]*Project, error) {
	return s.List(ctx, p)
}

// GetByID returns the project when visible. Absent and out-of-scope are the
// same not-found answer.
func (s *Service) GetByID(ctx context.Context, p authz.Principal, id int64) (*Project, error) {
	proj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !authz.CanSeeProject(p, proj.Membership()) {
		return nil, apperrors.ErrProjectNotFound
	}

	return proj, nil
}

// Update replaces project fields. Membership sets supplied in the DTO replace
// the stored set wholesale, duplicates collapsed.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, dto UpdateProjectDTO) (*Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	proj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !authz.CanSeeProject(p, proj.Membership()) {
		return nil, apperrors.ErrProjectNotFound
	}
	if !authz.CanMutateProject(p, proj.Membership()) {
		return nil, apperrors.ErrForbidden
	}

	if dto.Title != nil && *dto.Title != proj.Title {
		taken, err := s.repo.TitleTaken(ctx, *dto.Title, id)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to check title uniqueness", err)
		}
		if taken {
			return nil, apperrors.ErrProjectTitleTaken
		}
		proj.Title = *dto.Title
	}
	if dto.Description != nil {
		proj.Description = *dto.Description
	}
	if dto.Managers != nil {
		proj.Managers = dedupe(*dto.Managers)
	}
	if dto.Qas != nil {
		proj.Qas = dedupe(*dto.Qas)
	}
	if dto.Developers != nil {
		proj.Developers = dedupe(*dto.Developers)
	}
	proj.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, proj); err != nil {
		s.logger.Error("failed to update project", "project_id", id, "error", err)
		return nil, err
	}

	s.logger.Info("project updated", "project_id", id, "by", p.UserID)
	return proj, nil
}

// Delete removes the project. Bugs referencing it keep their project id; the
// dangling reference is the documented policy.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	proj, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !authz.CanSeeProject(p, proj.Membership()) {
		return apperrors.ErrProjectNotFound
	}
	if !authz.CanMutateProject(p, proj.Membership()) {
		return apperrors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("project deleted", "project_id", id, "by", p.UserID)
	return nil
}
