package project

import "time"

type Project struct {
	ID          int64     `gorm:"primaryKey"`
	Title       string    `gorm:"column:title;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// Member links a user to a project under one of the three membership sets.
// The unique index makes the sets collapse duplicates at the store layer.
type Member struct {
	ID         int64  `gorm:"primaryKey"`
	ProjectID  int64  `gorm:"column:project_id;not null;uniqueIndex:idx_project_member"`
	UserID     int64  `gorm:"column:user_id;not null;uniqueIndex:idx_project_member"`
	MemberRole string `gorm:"column:member_role;not null;uniqueIndex:idx_project_member"`
}

func (Member) TableName() string {
	return "project_members"
}

// Membership roles. These mirror the principal roles that can hold project
// membership; admin never appears here.
const (
	MemberRoleManager = "manager"
	MemberRoleQa      = "qa"
	MemberRoleDev     = "dev"
)
