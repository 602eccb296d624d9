package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"portfolio/internal/models"
)

// ResumeFileName is the name the active resume is stored under.
const ResumeFileName = "resume.pdf"

// SaveResume stores the uploaded PDF as the active resume and deactivates
// earlier uploads. filename is the client-supplied name kept for display.
func (s *Service) SaveResume(ctx context.Context, filename string, src io.Reader) (*models.ResumeMeta, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		filename = ResumeFileName
	}

	limit := s.maxUpload
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, invalid(fmt.Sprintf("File size must be less than %dMB", limit>>20))
	}
	if len(data) == 0 {
		return nil, invalid("File is empty")
	}
	if http.DetectContentType(data) != "application/pdf" {
		return nil, invalid("Only PDF files are allowed")
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	dest := filepath.Join(s.uploadDir, ResumeFileName)
	tmp, err := os.CreateTemp(s.uploadDir, "resume-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write resume: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("close resume: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("store resume: %w", err)
	}

	meta := models.ResumeMeta{
		Filename:   filename,
		FilePath:   dest,
		Size:       int64(len(data)),
		UploadedAt: time.Now().UTC(),
		Active:     true,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `UPDATE resume_meta SET active = 0 WHERE active = 1`); err != nil {
		return nil, fmt.Errorf("deactivate resumes: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO resume_meta (filename, stored_path, size, active, uploaded_at) VALUES (?, ?, ?, 1, ?)`,
		meta.Filename, meta.FilePath, meta.Size, meta.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert resume: %w", err)
	}
	if meta.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("resume id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit resume: %w", err)
	}
	s.logger.Info().Str("filename", meta.Filename).Int64("size", meta.Size).Msg("resume uploaded")
	return &meta, nil
}

// ActiveResume returns the metadata of the current resume or ErrNotFound.
func (s *Service) ActiveResume(ctx context.Context) (*models.ResumeMeta, error) {
	var meta models.ResumeMeta
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, stored_path, size, active, uploaded_at FROM resume_meta
		 WHERE active = 1 ORDER BY uploaded_at DESC, id DESC LIMIT 1`,
	).Scan(&meta.ID, &meta.Filename, &meta.FilePath, &meta.Size, &meta.Active, &meta.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query resume: %w", err)
	}
	return &meta, nil
}

// ResumeFile returns the metadata and on-disk path of the active resume.
// A row whose file has gone missing counts as no resume.
func (s *Service) ResumeFile(ctx context.Context) (*models.ResumeMeta, error) {
	meta, err := s.ActiveResume(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(meta.FilePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat resume: %w", err)
	}
	return meta, nil
}
