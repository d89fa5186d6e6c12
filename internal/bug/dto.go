package bug

import (
	"strings"
	"time"

	"github.com/irfansh/bugtracker/internal/core/common/validation"
)

// CreateBugDTO arrives as multipart form fields; the optional screenshot file
// is handled separately by the handler.
type CreateBugDTO struct {
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	Type                string     `json:"type"`
	Status              string     `json:"status"`
	ProjectID           int64      `json:"project_id"`
	AssignedDeveloperID *int64     `json:"assigned_developer_id,omitempty"`
}

func (d CreateBugDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("type", d.Type).Required().OneOf(ValidTypes()...)
	v.Field("status", d.Status).Required()
	v.Field("project_id", d.ProjectID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if !ValidateStatus(d.Type, d.Status) {
		return statusViolation(d.Type, d.Status)
	}
	return nil
}

// UpdateBugDTO carries partial edits. The resulting (type, status) pair is
// re-validated by the service against the merged record, not just the changed
// fields.
type UpdateBugDTO struct {
	Title               *string    `json:"title,omitempty"`
	Description         *string    `json:"description,omitempty"`
	Deadline            *time.Time `json:"deadline,omitempty"`
	Type                *string    `json:"type,omitempty"`
	Status              *string    `json:"status,omitempty"`
	ProjectID           *int64     `json:"project_id,omitempty"`
	AssignedDeveloperID *int64     `json:"assigned_developer_id,omitempty"`
}

func (d UpdateBugDTO) Validate() error {
	v := validation.NewValidator()
	if d.Title != nil {
		v.Field("title", *d.Title).Required().MaxLength(200)
	}
	if d.Type != nil {
		v.Field("type", *d.Type).Required().OneOf(ValidTypes()...)
	}
	if d.Status != nil {
		v.Field("status", *d.Status).Required()
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// Empty reports whether the DTO changes nothing besides a possible screenshot.
func (d UpdateBugDTO) Empty() bool {
	return d.Title == nil && d.Description == nil && d.Deadline == nil &&
		d.Type == nil && d.Status == nil && d.ProjectID == nil &&
		d.AssignedDeveloperID == nil
}

// ChangedFieldsBesidesStatus lists non-status fields present in the DTO, used
// to reject developer edits beyond the status.
func (d UpdateBugDTO) ChangedFieldsBesidesStatus() []string {
	var fields []string
	if d.Title != nil {
		fields = append(fields, "title")
	}
	if d.Description != nil {
		fields = append(fields, "description")
	}
	if d.Deadline != nil {
		fields = append(fields, "deadline")
	}
	if d.Type != nil {
		fields = append(fields, "type")
	}
	if d.ProjectID != nil {
		fields = append(fields, "project_id")
	}
	if d.AssignedDeveloperID != nil {
		fields = append(fields, "assigned_developer_id")
	}
	return fields
}

// String join shorthand for error messages.
func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}
