package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/irfansh/bugtracker/internal"
	"github.com/irfansh/bugtracker/internal/authz"
	projectDatamodel "github.com/irfansh/bugtracker/internal/core/datamodel/project"
	"github.com/irfansh/bugtracker/internal/project"
)

// ProjectRepository implements the project.Repository interface using GORM
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) project.Repository {
	return &ProjectRepository{db: db}
}

func memberRows(projectID int64, p *project.Project) []projectDatamodel.Member {
	var rows []projectDatamodel.Member
	for _, id := range p.Managers {
		rows = append(rows, projectDatamodel.Member{ProjectID: projectID, UserID: id, MemberRole: projectDatamodel.MemberRoleManager})
	}
	for _, id := range p.Qas {
		rows = append(rows, projectDatamodel.Member{ProjectID: projectID, UserID: id, MemberRole: projectDatamodel.MemberRoleQa})
	}
	for _, id := range p.Developers {
		rows = append(rows, projectDatamodel.Member{ProjectID: projectID, UserID: id, MemberRole: projectDatamodel.MemberRoleDev})
	}
	return rows
}

func applyMembers(p *project.Project, rows []projectDatamodel.Member) {
	p.Managers = []int64{}
	p.Qas = []int64{}
	p.Developers = []int64{}
	for _, m := range rows {
		switch m.MemberRole {
		case projectDatamodel.MemberRoleManager:
			p.Managers = append(p.Managers, m.UserID)
		case projectDatamodel.MemberRoleQa:
			p.Qas = append(p.Qas, m.UserID)
		case projectDatamodel.MemberRoleDev:
			p.Developers = append(p.Developers, m.UserID)
		}
	}
}

func (r *ProjectRepository) Create(ctx context.Context, p *project.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dm := projectDatamodel.Project{
			Title:       p.Title,
			Description: p.Description,
			CreatedAt:   p.CreatedAt,
			UpdatedAt:   p.UpdatedAt,
		}
		if err := tx.Create(&dm).Error; err != nil {
			return err
		}
		p.ID = dm.ID

		if rows := memberRows(dm.ID, p); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*project.Project, error) {
	var dm projectDatamodel.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProjectNotFound
		}
		return nil, err
	}

	var members []projectDatamodel.Member
	if err := r.db.WithContext(ctx).Where("project_id = ?", id).Find(&members).Error; err != nil {
		return nil, err
	}

	p := &project.Project{
		ID:          dm.ID,
		Title:       dm.Title,
		Description: dm.Description,
		CreatedAt:   dm.CreatedAt,
		UpdatedAt:   dm.UpdatedAt,
	}
	applyMembers(p, members)
	return p, nil
}

func (r *ProjectRepository) List(ctx context.Context, scope authz.ProjectScope) ([]*project.Project, error) {
	var dms []projectDatamodel.Project

	q := r.db.WithContext(ctx).Model(&projectDatamodel.Project{}).Order("projects.id ASC")
	if !scope.All {
		q = q.Joins("JOIN project_members pm ON pm.project_id = projects.id").
			Where("pm.user_id = ? AND pm.member_role = ?", scope.UserID, scope.MemberRole.String())
	}
	if err := q.Find(&dms).Error; err != nil {
		return nil, err
	}

	if len(dms) == 0 {
		return []*project.Project{}, nil
	}

	ids := make([]int64, len(dms))
	for i, dm := range dms {
		ids[i] = dm.ID
	}

	var members []projectDatamodel.Member
	if err := r.db.WithContext(ctx).Where("project_id IN ?", ids).Find(&members).Error; err != nil {
		return nil, err
	}
	byProject := make(map[int64][]projectDatamodel.Member)
	for _, m := range members {
		byProject[m.ProjectID] = append(byProject[m.ProjectID], m)
	}

	result := make([]*project.Project, len(dms))
	for i, dm := range dms {
		p := &project.Project{
			ID:          dm.ID,
			Title:       dm.Title,
			Description: dm.Description,
			CreatedAt:   dm.CreatedAt,
			UpdatedAt:   dm.UpdatedAt,
		}
		applyMembers(p, byProject[dm.ID])
		result[i] = p
	}
	return result, nil
}

func (r *ProjectRepository) TitleTaken(ctx context.Context, title string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&projectDatamodel.Project{}).
		Where("title = ? AND id <> ?", title, excludeID).
		Count(&count).Error
	return count > 0, err
}

// Update rewrites the project row and replaces the membership rows wholesale.
func (r *ProjectRepository) Update(ctx context.Context, p *project.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&projectDatamodel.Project{}).
			Where("id = ?", p.ID).
			Updates(map[string]interface{}{
				"title":       p.Title,
				"description": p.Description,
				"updated_at":  p.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrProjectNotFound
		}

		if err := tx.Where("project_id = ?", p.ID).Delete(&projectDatamodel.Member{}).Error; err != nil {
			return err
		}
		if rows := memberRows(p.ID, p); len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&projectDatamodel.Member{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&projectDatamodel.Project{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrProjectNotFound
		}
		return nil
	})
}
