package user

import (
	"github.com/irfansh/bugtracker/internal/core/common/validation"
)

// UpdateUserDTO carries partial edits. Nil fields are left untouched; an
// omitted password keeps the existing hash.
type UpdateUserDTO struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if d.Email != nil {
		v.Field("email", *d.Email).Required().Email()
	}
	if d.Name != nil {
		v.Field("name", *d.Name).Required()
	}
	if d.Password != nil {
		v.Field("password", *d.Password).Required().MinLength(8)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
