package portfolio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio/internal/models"
)

const projectColumns = `id, title, description, tech_stack, github_url, live_url, image_url, featured, sort_order, created_at`

// ListProjects returns every project ordered by display order.
func (s *Service) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY sort_order ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// GetProject loads a single project.
func (s *Service) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// CreateProject validates and inserts a project.
func (s *Service) CreateProject(ctx context.Context, p models.Project) (*models.Project, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	if p.Title == "" {
		return nil, invalid("title is required")
	}
	if p.Description == "" {
		return nil, invalid("description is required")
	}
	if p.TechStack == nil {
		p.TechStack = []string{}
	}
	stack, err := json.Marshal(p.TechStack)
	if err != nil {
		return nil, fmt.Errorf("encode tech stack: %w", err)
	}
	p.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (title, description, tech_stack, github_url, live_url, image_url, featured, sort_order, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, string(stack), p.GithubURL, p.LiveURL, p.ImageURL, p.Featured, p.Order, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("project id: %w", err)
	}
	return &p, nil
}

// UpdateProject applies the non-nil fields of patch.
func (s *Service) UpdateProject(ctx context.Context, id int64, patch models.ProjectPatch) (*models.Project, error) {
	if patch.Empty() {
		return nil, invalid("No fields to update")
	}
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, invalid("title cannot be empty")
		}
		add("title", title)
	}
	if patch.Description != nil {
		add("description", strings.TrimSpace(*patch.Description))
	}
	if patch.TechStack != nil {
		stack, err := json.Marshal(*patch.TechStack)
		if err != nil {
			return nil, fmt.Errorf("encode tech stack: %w", err)
		}
		add("tech_stack", string(stack))
	}
	if patch.GithubURL != nil {
		add("github_url", *patch.GithubURL)
	}
	if patch.LiveURL != nil {
		add("live_url", *patch.LiveURL)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	if patch.Featured != nil {
		add("featured", *patch.Featured)
	}
	if patch.Order != nil {
		add("sort_order", *patch.Order)
	}
	args = append(args, id)

	// RowsAffected is 0 on mysql for an unchanged row, so existence is
	// decided by reading the row back.
	if _, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project.
func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		p                   models.Project
		stack               string
		github, live, image sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &stack, &github, &live, &image,
		&p.Featured, &p.Order, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.TechStack = []string{}
	if stack != "" {
		if err := json.Unmarshal([]byte(stack), &p.TechStack); err != nil {
			return nil, fmt.Errorf("decode tech stack: %w", err)
		}
	}
	p.GithubURL = nullable(github)
	p.LiveURL = nullable(live)
	p.ImageURL = nullable(image)
	return &p, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
