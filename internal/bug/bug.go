package bug

import (
	"fmt"
	"time"

	apperrors "github.com/irfansh/bugtracker/internal"
	bugDatamodel "github.com/irfansh/bugtracker/internal/core/datamodel/bug"
)

// Bug types. The type is a fixed categorization set at creation; it gates
// which statuses the bug may hold.
const (
	TypeFeature = "feature"
	TypeBug     = "bug"
)

// Status values across both types.
const (
	StatusNew       = "new"
	StatusStarted   = "started"
	StatusCompleted = "completed"
	StatusResolved  = "resolved"
)

// LegalStatuses returns the ordered legal status set for a bug type, or nil
// for an unknown type.
func LegalStatuses(bugType string) []string {
	switch bugType {
	case TypeFeature:
		return []string{StatusNew, StatusStarted, StatusCompleted}
	case TypeBug:
		return []string{StatusNew, StatusStarted, StatusResolved}
	default:
		return nil
	}
}

// ValidateStatus reports whether status is legal for bugType. Every create
// and update goes through this check; there is no bypass.
func ValidateStatus(bugType, status string) bool {
	for _, s := range LegalStatuses(bugType) {
		if s == status {
			return true
		}
	}
	return false
}

// ValidTypes in declaration order.
func ValidTypes() []string {
	return []string{TypeFeature, TypeBug}
}

// ValidType reports whether bugType is a known type.
func ValidType(bugType string) bool {
	return bugType == TypeFeature || bugType == TypeBug
}

// statusViolation builds the rejection error naming the offending pair.
func statusViolation(bugType, status string) error {
	return apperrors.NewValidationError(
		fmt.Sprintf("%q is not a valid status for type %q", status, bugType),
		apperrors.ErrCodeInvalidStatus)
}

// Bug is the domain model.
type Bug struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	Type                string     `json:"type"`
	Status              string     `json:"status"`
	ProjectID           int64      `json:"project_id"`
	AssignedDeveloperID *int64     `json:"assigned_developer_id,omitempty"`
	Screenshot          *string    `json:"screenshot,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func ToDataModel(b *Bug) *bugDatamodel.Bug {
	return &bugDatamodel.Bug{
		ID:                  b.ID,
		Title:               b.Title,
		Description:         b.Description,
		Deadline:            b.Deadline,
		Type:                b.Type,
		Status:              b.Status,
		ProjectID:           b.ProjectID,
		AssignedDeveloperID: b.AssignedDeveloperID,
		Screenshot:          b.Screenshot,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func FromDataModel(b *bugDatamodel.Bug) *Bug {
	return &Bug{
		ID:                  b.ID,
		Title:               b.Title,
		Description:         b.Description,
		Deadline:            b.Deadline,
		Type:                b.Type,
		Status:              b.Status,
		ProjectID:           b.ProjectID,
		AssignedDeveloperID: b.AssignedDeveloperID,
		Screenshot:          b.Screenshot,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
}

func FromDataModelSlice(bugs []bugDatamodel.Bug) []*Bug {
	result := make([]*Bug, len(bugs))
	for i := range bugs {
		result[i] = FromDataModel(&bugs[i])
	}
	return result
}
