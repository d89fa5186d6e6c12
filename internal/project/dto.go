package project

import (
	"github.com/irfansh/bugtracker/internal/core/common/validation"
)

type CreateProjectDTO struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Managers    []int64 `json:"managers"`
	Qas         []int64 `json:"qas"`
	Developers  []int64 `json:"developers"`
}

func (d CreateProjectDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateProjectDTO replaces fields wholesale; nil slices leave the matching
// membership set unchanged, empty slices clear it.
type UpdateProjectDTO struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Managers    *[]int64 `json:"managers,omitempty"`
	Qas         *[]int64 `json:"qas,omitempty"`
	Developers  *[]int64 `json:"developers,omitempty"`
}

func (d UpdateProjectDTO) Validate() error {
	v := validation.NewValidator()
	if d.Title != nil {
		v.Field("title", *d.Title).Required().MaxLength(200)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
