package chat

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"portfolio/internal/models"
)

func bodyOf(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

type recordingTransport struct {
	mu       sync.Mutex
	requests []Request
	bodies   []string
}

func (r *recordingTransport) Open(_ context.Context, req Request) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	body := r.bodies[0]
	r.bodies = r.bodies[1:]
	return bodyOf(body), nil
}

func lastContent(c *Controller) string {
	snap := c.Snapshot()
	return snap[len(snap)-1].Content
}

func TestControllerSuccessfulExchanges(t *testing.T) {
	transport := &recordingTransport{bodies: []string{
		"data: Hel\n\ndata: lo\n\ndata: [DONE]\n\n",
		"data: See you\n\n",
	}}
	var states []State
	ctrl := NewController(transport, WithObserver(func(ev Event) {
		if ev.Fragment == "" {
			states = append(states, ev.State)
		}
	}))

	if err := ctrl.Submit(context.Background(), "  hi  "); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := ctrl.Submit(context.Background(), "bye"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(transport.requests[0].History) != 0 || transport.requests[0].Message != "hi" {
		t.Fatalf("unexpected first request %#v", transport.requests[0])
	}
	want := []Pair{{Prompt: "hi", Response: "Hello"}}
	if !reflect.DeepEqual(transport.requests[1].History, want) {
		t.Fatalf("second request history %#v", transport.requests[1].History)
	}

	snap := ctrl.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(snap))
	}
	if snap[3].Role != models.RoleUser || snap[3].Content != "bye" || snap[4].Content != "See you" {
		t.Fatalf("unexpected transcript %#v", snap)
	}
	wantStates := []State{Sending, Streaming, Settling, Idle, Sending, Streaming, Settling, Idle}
	if !reflect.DeepEqual(states, wantStates) {
		t.Fatalf("state sequence %v", states)
	}
	if ctrl.State() != Idle {
		t.Fatalf("controller not idle")
	}
	if got := ctrl.History(); len(got) != 2 {
		t.Fatalf("expected two pairs, got %#v", got)
	}
}

func TestControllerRejectsEmptyInput(t *testing.T) {
	ctrl := NewController(TransportFunc(func(context.Context, Request) (io.ReadCloser, error) {
		t.Fatalf("transport must not be called")
		return nil, nil
	}))
	for _, text := range []string{"", "   ", "\n\t"} {
		if err := ctrl.Submit(context.Background(), text); !errors.Is(err, ErrEmptyInput) {
			t.Fatalf("expected ErrEmptyInput for %q, got %v", text, err)
		}
	}
	if len(ctrl.Snapshot()) != 1 {
		t.Fatalf("transcript changed on rejected input")
	}
}

func TestControllerSingleFlight(t *testing.T) {
	pr, pw := io.Pipe()
	var calls int
	streaming := make(chan struct{})
	ctrl := NewController(
		TransportFunc(func(context.Context, Request) (io.ReadCloser, error) {
			calls++
			return pr, nil
		}),
		WithObserver(func(ev Event) {
			if ev.Fragment == "He" {
				close(streaming)
			}
		}),
	)

	done := make(chan error, 1)
	go func() { done <- ctrl.Submit(context.Background(), "first") }()

	if _, err := pw.Write([]byte("data: He\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	<-streaming
	if ctrl.State() != Streaming {
		t.Fatalf("expected streaming, got %s", ctrl.State())
	}

	before := ctrl.Snapshot()
	if err := ctrl.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if !reflect.DeepEqual(before, ctrl.Snapshot()) {
		t.Fatalf("rejected submit changed the transcript")
	}

	if _, err := pw.Write([]byte("data: llo\ndata: [DONE]\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one transport call, got %d", calls)
	}
	if len(ctrl.Snapshot()) != 3 || lastContent(ctrl) != "Hello" {
		t.Fatalf("unexpected transcript %#v", ctrl.Snapshot())
	}
}

func TestControllerFailureCollapse(t *testing.T) {
	var applied []string
	body := io.MultiReader(
		strings.NewReader("data: He\ndata: llo\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)
	ctrl := NewController(
		TransportFunc(func(context.Context, Request) (io.ReadCloser, error) {
			return io.NopCloser(body), nil
		}),
		WithObserver(func(ev Event) {
			if ev.Fragment != "" {
				applied = append(applied, ev.Fragment)
			}
		}),
	)
	if err := ctrl.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("failure should be absorbed, got %v", err)
	}
	if strings.Join(applied, "") != "Hello" {
		t.Fatalf("fragments not applied before failure: %q", applied)
	}
	if got := lastContent(ctrl); got != DefaultFallback {
		t.Fatalf("expected fallback, got %q", got)
	}
	if ctrl.State() != Idle {
		t.Fatalf("controller not idle after failure")
	}
	want := []Pair{{Prompt: "hi", Response: DefaultFallback}}
	if !reflect.DeepEqual(ctrl.History(), want) {
		t.Fatalf("failed exchange should still pair: %#v", ctrl.History())
	}
}

func TestControllerTransportError(t *testing.T) {
	ctrl := NewController(
		TransportFunc(func(context.Context, Request) (io.ReadCloser, error) {
			return nil, &StatusError{Code: 500}
		}),
		WithFallback("oops"),
	)
	if err := ctrl.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := lastContent(ctrl); got != "oops" {
		t.Fatalf("expected custom fallback, got %q", got)
	}
	// the controller is usable again
	ctrl.transport = TransportFunc(func(context.Context, Request) (io.ReadCloser, error) {
		return bodyOf("data: fine\n"), nil
	})
	if err := ctrl.Submit(context.Background(), "again"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := lastContent(ctrl); got != "fine" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestControllerCloseCancelsExchange(t *testing.T) {
	pr, _ := io.Pipe()
	streaming := make(chan struct{})
	ctrl := NewController(
		TransportFunc(func(context.Context, Request) (io.ReadCloser, error) {
			return pr, nil
		}),
		WithObserver(func(ev Event) {
			if ev.State == Streaming && ev.Fragment == "" {
				close(streaming)
			}
		}),
	)
	done := make(chan error, 1)
	go func() { done <- ctrl.Submit(context.Background(), "hang") }()
	<-streaming
	ctrl.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("exchange not cancelled")
	}
	if got := lastContent(ctrl); got != DefaultFallback {
		t.Fatalf("expected fallback after cancel, got %q", got)
	}
	if err := ctrl.Submit(context.Background(), "more"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestControllerCustomGreeting(t *testing.T) {
	ctrl := NewController(nil, WithGreeting("welcome"))
	snap := ctrl.Snapshot()
	if len(snap) != 1 || snap[0].Content != "welcome" || !snap[0].Greeting {
		t.Fatalf("unexpected greeting %#v", snap)
	}
	if len(ctrl.History()) != 0 {
		t.Fatalf("greeting must not pair")
	}
}
