package portfolio

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio/internal/models"
)

const (
	maxContactName    = 100
	maxContactSubject = 200
	maxContactMessage = 2000
)

// SubmitContact validates and stores a contact form submission.
func (s *Service) SubmitContact(ctx context.Context, msg models.ContactMessage) (*models.ContactMessage, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)

	if err := checkLength("name", msg.Name, maxContactName); err != nil {
		return nil, err
	}
	if err := checkLength("subject", msg.Subject, maxContactSubject); err != nil {
		return nil, err
	}
	if err := checkLength("message", msg.Message, maxContactMessage); err != nil {
		return nil, err
	}
	addr, err := mail.ParseAddress(msg.Email)
	if err != nil || addr.Address != msg.Email {
		return nil, invalid("email is not a valid address")
	}

	msg.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, subject, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.Name, msg.Email, msg.Subject, msg.Message, msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}
	if msg.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("contact id: %w", err)
	}
	s.logger.Info().Int64("id", msg.ID).Str("subject", msg.Subject).Msg("contact message received")
	return &msg, nil
}

// ListContacts returns the most recent submissions first.
func (s *Service) ListContacts(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, subject, message, created_at FROM contact_messages
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.ContactMessage, 0)
	for rows.Next() {
		var m models.ContactMessage
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact messages: %w", err)
	}
	return out, nil
}

func checkLength(field, value string, max int) error {
	if value == "" {
		return invalid(field + " is required")
	}
	if utf8.RuneCountInString(value) > max {
		return invalid(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}
