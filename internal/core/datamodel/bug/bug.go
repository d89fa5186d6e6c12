package bug

import "time"

// Bug is the persistence model for the bugs table. ProjectID and
// AssignedDeveloperID are plain references: deleting the referent leaves a
// dangling id here, which reads resolve to an absent join.
type Bug struct {
	ID                  int64      `gorm:"primaryKey"`
	Title               string     `gorm:"column:title;uniqueIndex;not null"`
	Description         string     `gorm:"column:description"`
	Deadline            *time.Time `gorm:"column:deadline;type:date"`
	Type                string     `gorm:"column:type;not null"`
	Status              string     `gorm:"column:status;not null"`
	ProjectID           int64      `gorm:"column:project_id;not null"`
	AssignedDeveloperID *int64     `gorm:"column:assigned_developer_id"`
	Screenshot          *string    `gorm:"column:screenshot"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (Bug) TableName() string {
	return "bugs"
}
