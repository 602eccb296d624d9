package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"portfolio/internal/models"
)

const (
	// DefaultGreeting opens every transcript.
	DefaultGreeting = "👋 Hi! I'm Aman's AI assistant. Ask me anything about his skills, experience, or projects!"
	// DefaultFallback replaces the assistant reply when an exchange fails.
	DefaultFallback = "Sorry, I encountered an error. Please try again."
)

var (
	ErrEmptyInput = errors.New("chat: message is empty")
	ErrBusy       = errors.New("chat: an exchange is already in progress")
	ErrClosed     = errors.New("chat: controller closed")
)

// State is the phase of the current exchange.
type State int

const (
	Idle State = iota
	Sending
	Streaming
	Settling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Settling:
		return "settling"
	default:
		return "unknown"
	}
}

// Event is delivered to the observer on every state change and for every
// fragment applied to the placeholder. Fragment is empty for state changes.
type Event struct {
	State    State
	Fragment string
	Failed   bool
}

// Option configures a Controller.
type Option func(*Controller)

func WithGreeting(text string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(text) != "" {
			c.greeting = text
		}
	}
}

func WithFallback(text string) Option {
	return func(c *Controller) {
		if strings.TrimSpace(text) != "" {
			c.fallback = text
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithObserver registers fn for Events. fn runs on the goroutine calling
// Submit and must not call Submit itself.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) { c.observer = fn }
}

// Controller runs one exchange at a time against a Transport and is the only
// writer of its Transcript.
type Controller struct {
	transport  Transport
	transcript *Transcript
	greeting   string
	fallback   string
	logger     zerolog.Logger
	observer   func(Event)

	mu     sync.Mutex
	state  State
	closed bool
	cancel context.CancelFunc
}

func NewController(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		greeting:  DefaultGreeting,
		fallback:  DefaultFallback,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.transcript = NewTranscript(c.greeting)
	return c
}

// Submit runs a full exchange for text and blocks until the controller is
// Idle again. Rejected input returns ErrEmptyInput, ErrBusy or ErrClosed and
// leaves the transcript untouched. Transport and stream failures are not
// returned: the reply is replaced with the fallback text instead.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Idle {
		c.mu.Unlock()
		return ErrBusy
	}
	history := EncodeHistory(c.transcript.Snapshot())
	if _, err := c.transcript.Append(models.Message{Role: models.RoleUser, Content: text}); err != nil {
		c.mu.Unlock()
		return err
	}
	if _, err := c.transcript.OpenPlaceholder(); err != nil {
		c.mu.Unlock()
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = Sending
	c.mu.Unlock()
	defer cancel()
	c.emit(Event{State: Sending})

	err := c.exchange(ctx, Request{Message: text, History: history})
	if err != nil {
		c.logger.Warn().Err(err).Int("history", len(history)).Msg("chat exchange failed")
		if rerr := c.transcript.ReplaceLast(c.fallback); rerr != nil {
			c.logger.Error().Err(rerr).Msg("replace placeholder")
		}
	} else {
		c.setState(Settling)
	}
	if cerr := c.transcript.Close(); cerr != nil {
		c.logger.Error().Err(cerr).Msg("close placeholder")
	}

	c.mu.Lock()
	c.state = Idle
	c.cancel = nil
	c.mu.Unlock()
	c.emit(Event{State: Idle, Failed: err != nil})
	return nil
}

func (c *Controller) exchange(ctx context.Context, req Request) error {
	body, err := c.transport.Open(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()
	// unblock a pending Read when the exchange is cancelled
	stop := context.AfterFunc(ctx, func() { body.Close() })
	defer stop()

	c.setState(Streaming)
	reader := NewReader(body)
	for {
		frag, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			return ctx.Err()
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		if frag == "" {
			continue
		}
		if err := c.transcript.UpdateLast(frag); err != nil {
			return err
		}
		c.emit(Event{State: Streaming, Fragment: frag})
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(Event{State: s})
}

func (c *Controller) emit(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

// State returns the current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the transcript for rendering.
func (c *Controller) Snapshot() []models.Message {
	return c.transcript.Snapshot()
}

// History returns the pairs the next request would carry.
func (c *Controller) History() []Pair {
	return EncodeHistory(c.transcript.Snapshot())
}

// Close cancels an in-flight exchange and rejects later submissions.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
