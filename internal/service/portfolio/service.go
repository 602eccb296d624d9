package portfolio

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// ValidationError reports input rejected before touching storage.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Service owns the portfolio content: projects, the resume file, contact
// messages and admin accounts.
type Service struct {
	db        *sql.DB
	uploadDir string
	maxUpload int64
	logger    zerolog.Logger
}

// NewService builds a portfolio service storing uploads under uploadDir.
func NewService(db *sql.DB, uploadDir string, maxUploadBytes int64, logger zerolog.Logger) *Service {
	return &Service{
		db:        db,
		uploadDir: uploadDir,
		maxUpload: maxUploadBytes,
		logger:    logger,
	}
}

// MaxUploadBytes is the largest resume accepted by SaveResume.
func (s *Service) MaxUploadBytes() int64 {
	return s.maxUpload
}
