package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/bug"
	datamodel "github.com/irfansh/bugtracker/internal/core/datamodel/bug"
)

type BugRepository struct {
	db *gorm.DB
}

func NewBugRepository(db *gorm.DB) bug.Repository {
	return &BugRepository{db: db}
}

func (r *BugRepository) Create(ctx context.Context, b *bug.Bug) error {
	model := bug.ToDataModel(b)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrBugTitleTaken
		}
		return apperrors.NewInternalError("failed to create bug", err)
	}
	b.ID = model.ID
	return nil
}

func (r *BugRepository) GetByID(ctx context.Context, id int64) (*bug.Bug, error) {
	var model datamodel.Bug
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBugNotFound
		}
		return nil, apperrors.NewInternalError("failed to get bug", err)
	}
	return bug.FromDataModel(&model), nil
}

func (r *BugRepository) List(ctx context.Context, filter bug.ListFilter) ([]*bug.Bug, error) {
	q := r.db.WithContext(ctx).Model(&datamodel.Bug{})

	if filter.ProjectIDs != nil {
		q = q.Where("project_id IN ?", filter.ProjectIDs)
	}
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.AssignedDeveloperID != nil {
		q = q.Where("assigned_developer_id = ?", *filter.AssignedDeveloperID)
	}

	var models []datamodel.Bug
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to list bugs", err)
	}
	return bug.FromDataModelSlice(models), nil
}

func (r *BugRepository) TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&datamodel.Bug{}).Where("title = ?", title)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *BugRepository) Update(ctx context.Context, b *bug.Bug) error {
	model := bug.ToDataModel(b)
	result := r.db.WithContext(ctx).Model(&datamodel.Bug{}).Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"title":                 model.Title,
			"description":           model.Description,
			"deadline":              model.Deadline,
			"type":                  model.Type,
			"status":                model.Status,
			"project_id":            model.ProjectID,
			"assigned_developer_id": model.AssignedDeveloperID,
			"screenshot":            model.Screenshot,
			"updated_at":            model.UpdatedAt,
		})
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return apperrors.ErrBugTitleTaken
		}
		return apperrors.NewInternalError("failed to update bug", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrBugNotFound
	}
	return nil
}

func (r *BugRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&datamodel.Bug{}, id)
	if result.Error != nil {
		return apperrors.NewInternalError("failed to delete bug", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrBugNotFound
	}
	return nil
}
