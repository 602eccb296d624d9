package models

import "time"

// Admin is a user allowed to manage projects and the resume.
type Admin struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ResumeMeta describes an uploaded resume file.
type ResumeMeta struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"-"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Active     bool      `json:"is_active"`
}

// ContactMessage is a visitor submission from the contact form.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
