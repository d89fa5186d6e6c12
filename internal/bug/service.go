package bug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
	"github.com/irfansh/bugtracker/internal/project"
)

// ListFilter narrows bug listings. ProjectIDs is the visibility set already
// resolved from the principal's project scope; nil means unrestricted
// (admin).
type ListFilter struct {
	ProjectIDs          []int64
	ProjectID           *int64
	AssignedDeveloperID *int64
}

// Repository is the data access contract for bugs.
type Repository interface {
	Create(ctx context.Context, b *Bug) error
	GetByID(ctx context.Context, id int64) (*Bug, error)
	List(ctx context.Context, filter ListFilter) ([]*Bug, error)
	TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error)
	Update(ctx context.Context, b *Bug) error
	Delete(ctx context.Context, id int64) error
}

// ProjectDirectory resolves the owning project and the principal's project
// scope; the project repository satisfies it.
type ProjectDirectory interface {
	GetByID(ctx context.Context, id int64) (*project.Project, error)
	List(ctx context.Context, scope authz.ProjectScope) ([]*project.Project, error)
}

// FileStore stores screenshot uploads and returns opaque references. The
// service never looks inside the files.
type FileStore interface {
	Store(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Upload is an incoming screenshot file.
type Upload struct {
	Filename string
	Reader   io.Reader
}

type Service struct {
	repo     Repository
	projects ProjectDirectory
	files    FileStore
	logger   *slog.Logger
}

func NewService(repo Repository, projects ProjectDirectory, files FileStore, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		projects: projects,
		files:    files,
		logger:   logger,
	}
}

// Create reports a new bug in an existing project. Managers and qas of the
// project (and admins) only; the (type, status) pair must be legal.
func (s *Service) Create(ctx context.Context, p authz.Principal, dto CreateBugDTO, screenshot *Upload) (*Bug, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	proj, err := s.projects.GetByID(ctx, dto.ProjectID)
	if err != nil {
		return nil, err
	}

	if !authz.CanSeeProject(p, proj.Membership()) {
		return nil, apperrors.ErrProjectNotFound
	}
	if !authz.CanCreateBug(p, proj.Membership()) {
		return nil, apperrors.ErrForbidden
	}

	taken, err := s.repo.TitleTaken(ctx, dto.Title, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to check title uniqueness", err)
	}
	if taken {
		return nil, apperrors.ErrBugTitleTaken
	}

	var ref *string
	if screenshot != nil {
		stored, err := s.files.Store(ctx, screenshot.Filename, screenshot.Reader)
		if err != nil {
			return nil, err
		}
		ref = &stored
	}

	now := time.Now()
	b := &Bug{
		Title:               dto.Title,
		Description:         dto.Description,
		Deadline:            dto.Deadline,
		Type:                dto.Type,
		Status:              dto.Status,
		ProjectID:           dto.ProjectID,
		AssignedDeveloperID: dto.AssignedDeveloperID,
		Screenshot:          ref,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if ref != nil {
			if derr := s.files.Delete(ctx, *ref); derr != nil {
				s.logger.Warn("failed to clean up screenshot after create failure", "ref", *ref, "error", derr)
			}
		}
		s.logger.Error("failed to create bug", "title", dto.Title, "error", err)
		return nil, err
	}

	s.logger.Info("bug created", "bug_id", b.ID, "project_id", b.ProjectID, "type", b.Type, "by", p.UserID)
	return b, nil
}

// List returns bugs visible to the principal: transitively, the bugs of
// projects the principal can see. assignedToMe is the explicit "my bugs" mode.
func (s *Service) List(ctx context.Context, p authz.Principal, projectID *int64, assignedToMe bool) ([]*Bug, error) {
	filter := ListFilter{ProjectID: projectID}

	scope := authz.ScopeForProjects(p)
	if !scope.All {
		visible, err := s.projects.List(ctx, scope)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(visible))
		for i, proj := range visible {
			ids[i] = proj.ID
		}
		if len(ids) == 0 {
			return []*Bug{}, nil
		}
		filter.ProjectIDs = ids
	}

	if assignedToMe {
		filter.AssignedDeveloperID = &p.UserID
	}

	return s.repo.List(ctx, filter)
}

// GetByID returns the bug when its project is visible to the principal.
// Absent and out-of-scope are the same not-found answer.
func (s *Service) GetByID(ctx context.Context, p authz.Principal, id int64) (*Bug, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.canSee(ctx, p, b) {
		return nil, apperrors.ErrBugNotFound
	}

	return b, nil
}

// Update applies partial edits. Developers assigned to the bug may change the
// status and nothing else; the merged (type, status) pair is always
// re-validated. Screenshot replacement stores the new file before the record
// update and deletes the old file only after the update commits.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, dto UpdateBugDTO, screenshot *Upload) (*Bug, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	membership := s.membershipFor(ctx, b.ProjectID)
	if !authz.CanSeeProject(p, membership) {
		return nil, apperrors.ErrBugNotFound
	}

	mutation, ok := authz.CanMutateBug(p, membership, b.AssignedDeveloperID)
	if !ok {
		return nil, apperrors.ErrForbidden
	}
	if mutation.StatusOnly {
		if extra := dto.ChangedFieldsBesidesStatus(); len(extra) > 0 {
			return nil, apperrors.NewForbiddenError(
				fmt.Sprintf("developers may only change status, got: %s", joinFields(extra)),
				apperrors.ErrCodeForbidden)
		}
		if screenshot != nil {
			return nil, apperrors.NewForbiddenError("developers may only change status", apperrors.ErrCodeForbidden)
		}
	}

	if dto.Title != nil && *dto.Title != b.Title {
		taken, err := s.repo.TitleTaken(ctx, *dto.Title, id)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to check title uniqueness", err)
		}
		if taken {
			return nil, apperrors.ErrBugTitleTaken
		}
		b.Title = *dto.Title
	}
	if dto.Description != nil {
		b.Description = *dto.Description
	}
	if dto.Deadline != nil {
		b.Deadline = dto.Deadline
	}
	if dto.Type != nil {
		b.Type = *dto.Type
	}
	if dto.Status != nil {
		b.Status = *dto.Status
	}
	if dto.ProjectID != nil && *dto.ProjectID != b.ProjectID {
		target, err := s.projects.GetByID(ctx, *dto.ProjectID)
		if err != nil {
			return nil, err
		}
		if !authz.CanCreateBug(p, target.Membership()) {
			return nil, apperrors.ErrForbidden
		}
		b.ProjectID = target.ID
	}
	if dto.AssignedDeveloperID != nil {
		b.AssignedDeveloperID = dto.AssignedDeveloperID
	}

	// The merged record must hold a legal pair even when neither field
	// changed alone; a type switch can invalidate an untouched status.
	if !ValidateStatus(b.Type, b.Status) {
		return nil, statusViolation(b.Type, b.Status)
	}

	oldRef := b.Screenshot
	var newRef *string
	if screenshot != nil {
		stored, err := s.files.Store(ctx, screenshot.Filename, screenshot.Reader)
		if err != nil {
			return nil, err
		}
		newRef = &stored
		b.Screenshot = newRef
	}

	b.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, b); err != nil {
		if newRef != nil {
			if derr := s.files.Delete(ctx, *newRef); derr != nil {
				s.logger.Warn("failed to clean up screenshot after update failure", "ref", *newRef, "error", derr)
			}
		}
		s.logger.Error("failed to update bug", "bug_id", id, "error", err)
		return nil, err
	}

	// Old file goes away only after the record points at the new one.
	if newRef != nil && oldRef != nil && *oldRef != *newRef {
		if derr := s.files.Delete(ctx, *oldRef); derr != nil {
			s.logger.Warn("failed to delete replaced screenshot", "ref", *oldRef, "error", derr)
		}
	}

	s.logger.Info("bug updated", "bug_id", id, "status", b.Status, "by", p.UserID)
	return b, nil
}

// Delete removes the bug record, then releases its screenshot. File cleanup
// is best-effort: the record deletion has already committed.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	membership := s.membershipFor(ctx, b.ProjectID)
	if !authz.CanSeeProject(p, membership) {
		return apperrors.ErrBugNotFound
	}
	if !authz.CanDeleteBug(p, membership) {
		return apperrors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if b.Screenshot != nil {
		if derr := s.files.Delete(ctx, *b.Screenshot); derr != nil {
			s.logger.Warn("failed to delete screenshot for removed bug", "bug_id", id, "ref", *b.Screenshot, "error", derr)
		}
	}

	s.logger.Info("bug deleted", "bug_id", id, "by", p.UserID)
	return nil
}

func (s *Service) canSee(ctx context.Context, p authz.Principal, b *Bug) bool {
	return authz.CanSeeProject(p, s.membershipFor(ctx, b.ProjectID))
}

// membershipFor resolves the owning project's membership. A dangling project
// reference yields an empty membership: only admins keep access to orphaned
// bugs.
func (s *Service) membershipFor(ctx context.Context, projectID int64) authz.ProjectMembership {
	proj, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrProjectNotFound) {
			s.logger.Error("failed to resolve owning project", "project_id", projectID, "error", err)
		}
		return authz.ProjectMembership{}
	}
	return proj.Membership()
}
