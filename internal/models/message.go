package models

import (
	"fmt"
	"time"
)

// Role identifies who authored a chat message. Only two roles exist.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// ParseRole converts the wire representation into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Message is one entry of a chat transcript.
type Message struct {
	Seq       int       `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Greeting  bool      `json:"greeting,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
