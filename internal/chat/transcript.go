package chat

import (
	"errors"
	"sync"
	"time"

	"portfolio/internal/models"
)

var (
	// ErrNoOpenPlaceholder means a streaming update arrived with no open
	// assistant placeholder. The controller never does this; seeing it is a bug.
	ErrNoOpenPlaceholder = errors.New("chat: no open assistant placeholder")
	// ErrPlaceholderOpen rejects an append while a placeholder is still streaming.
	ErrPlaceholderOpen = errors.New("chat: assistant placeholder still open")
	errInvalidRole     = errors.New("chat: invalid message role")
)

// Transcript is the ordered, append-only record of one chat session. The
// only in-place change allowed is growth of the trailing assistant
// placeholder while it is open.
type Transcript struct {
	mu       sync.RWMutex
	messages []models.Message
	open     bool
	now      func() time.Time
}

// NewTranscript starts a transcript holding only the greeting.
func NewTranscript(greeting string) *Transcript {
	t := &Transcript{now: time.Now}
	t.messages = []models.Message{{
		Seq:       0,
		Role:      models.RoleAssistant,
		Content:   greeting,
		Greeting:  true,
		CreatedAt: t.now(),
	}}
	return t
}

// Append adds a closed message and returns the new snapshot.
func (t *Transcript) Append(msg models.Message) ([]models.Message, error) {
	if !msg.Role.Valid() {
		return nil, errInvalidRole
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		return nil, ErrPlaceholderOpen
	}
	t.appendLocked(msg)
	return t.snapshotLocked(), nil
}

// OpenPlaceholder appends an empty assistant message that UpdateLast grows.
func (t *Transcript) OpenPlaceholder() ([]models.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		return nil, ErrPlaceholderOpen
	}
	t.appendLocked(models.Message{Role: models.RoleAssistant})
	t.open = true
	return t.snapshotLocked(), nil
}

// UpdateLast appends delta to the open placeholder.
func (t *Transcript) UpdateLast(delta string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return ErrNoOpenPlaceholder
	}
	t.messages[len(t.messages)-1].Content += delta
	return nil
}

// ReplaceLast overwrites the content of the open placeholder.
func (t *Transcript) ReplaceLast(content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return ErrNoOpenPlaceholder
	}
	t.messages[len(t.messages)-1].Content = content
	return nil
}

// Close seals the open placeholder.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return ErrNoOpenPlaceholder
	}
	t.open = false
	return nil
}

// Open reports whether a placeholder is still receiving fragments.
func (t *Transcript) Open() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.open
}

// Snapshot returns a copy of the messages in order.
func (t *Transcript) Snapshot() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// Len returns the number of messages, greeting included.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Transcript) appendLocked(msg models.Message) {
	msg.Seq = len(t.messages)
	msg.Greeting = false
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = t.now()
	}
	t.messages = append(t.messages, msg)
}

func (t *Transcript) snapshotLocked() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
