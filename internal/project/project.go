package project

import (
	"time"

	"github.com/irfansh/bugtracker/internal/authz"
)

// Project is the domain model: a unit of work with three role-specific
// membership sets holding user ids.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Managers    []int64   `json:"managers"`
	Qas         []int64   `json:"qas"`
	Developers  []int64   `json:"developers"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership adapts the project for the authorization resolver.
func (p *Project) Membership() authz.ProjectMembership {
	return authz.ProjectMembership{
		Managers:   p.Managers,
		Qas:        p.Qas,
		Developers: p.Developers,
	}
}

// dedupe collapses duplicate ids while keeping first-seen order; membership
// is a set, not a list.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
