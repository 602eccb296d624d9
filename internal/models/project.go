package models

import "time"

// Project is one portfolio entry shown on the landing page.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TechStack   []string  `json:"tech_stack"`
	GithubURL   *string   `json:"github_url"`
	LiveURL     *string   `json:"live_url"`
	ImageURL    *string   `json:"image_url"`
	Featured    bool      `json:"featured"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectPatch carries the optional fields of a project update.
// Nil fields are left untouched.
type ProjectPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	TechStack   *[]string `json:"tech_stack"`
	GithubURL   *string   `json:"github_url"`
	LiveURL     *string   `json:"live_url"`
	ImageURL    *string   `json:"image_url"`
	Featured    *bool     `json:"featured"`
	Order       *int      `json:"order"`
}

// Empty reports whether the patch would change nothing.
func (p ProjectPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.TechStack == nil &&
		p.GithubURL == nil && p.LiveURL == nil && p.ImageURL == nil &&
		p.Featured == nil && p.Order == nil
}
