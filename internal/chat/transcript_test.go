package chat

import (
	"errors"
	"sync"
	"testing"

	"portfolio/internal/models"
)

func TestTranscriptStartsWithGreeting(t *testing.T) {
	tr := NewTranscript("hello there")
	snap := tr.Snapshot()
	if len(snap) != 1 || !snap[0].Greeting || snap[0].Role != models.RoleAssistant || snap[0].Seq != 0 {
		t.Fatalf("unexpected initial transcript %#v", snap)
	}
}

func TestTranscriptPlaceholderLifecycle(t *testing.T) {
	tr := NewTranscript("g")
	if _, err := tr.Append(models.Message{Role: models.RoleUser, Content: "hi", Greeting: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := tr.UpdateLast("x"); !errors.Is(err, ErrNoOpenPlaceholder) {
		t.Fatalf("expected ErrNoOpenPlaceholder, got %v", err)
	}
	snap, err := tr.OpenPlaceholder()
	if err != nil {
		t.Fatalf("OpenPlaceholder: %v", err)
	}
	if len(snap) != 3 || snap[2].Content != "" || snap[2].Seq != 2 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if snap[1].Greeting {
		t.Fatalf("only the first message may be the greeting")
	}
	if _, err := tr.OpenPlaceholder(); !errors.Is(err, ErrPlaceholderOpen) {
		t.Fatalf("second placeholder allowed: %v", err)
	}
	if _, err := tr.Append(models.Message{Role: models.RoleUser, Content: "again"}); !errors.Is(err, ErrPlaceholderOpen) {
		t.Fatalf("append allowed while open: %v", err)
	}

	for _, delta := range []string{"He", "llo"} {
		if err := tr.UpdateLast(delta); err != nil {
			t.Fatalf("UpdateLast: %v", err)
		}
	}
	if got := tr.Snapshot()[2].Content; got != "Hello" {
		t.Fatalf("unexpected content %q", got)
	}
	if err := tr.ReplaceLast("fallback"); err != nil {
		t.Fatalf("ReplaceLast: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); !errors.Is(err, ErrNoOpenPlaceholder) {
		t.Fatalf("double close: %v", err)
	}
	if got := tr.Snapshot()[2].Content; got != "fallback" {
		t.Fatalf("unexpected content %q", got)
	}
	if tr.Len() != 3 {
		t.Fatalf("unexpected length %d", tr.Len())
	}
}

func TestTranscriptSnapshotIsCopy(t *testing.T) {
	tr := NewTranscript("g")
	snap := tr.Snapshot()
	snap[0].Content = "changed"
	if tr.Snapshot()[0].Content != "g" {
		t.Fatalf("snapshot aliases transcript storage")
	}
}

func TestTranscriptRejectsInvalidRole(t *testing.T) {
	tr := NewTranscript("g")
	if _, err := tr.Append(models.Message{Role: "system", Content: "x"}); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestTranscriptConcurrentReaders(t *testing.T) {
	tr := NewTranscript("g")
	if _, err := tr.OpenPlaceholder(); err != nil {
		t.Fatalf("OpenPlaceholder: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = tr.Snapshot()
			}
		}()
	}
	for j := 0; j < 100; j++ {
		if err := tr.UpdateLast("a"); err != nil {
			t.Fatalf("UpdateLast: %v", err)
		}
	}
	wg.Wait()
	if got := len(tr.Snapshot()[1].Content); got != 100 {
		t.Fatalf("expected 100 bytes, got %d", got)
	}
}
