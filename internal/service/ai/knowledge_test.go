package ai

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

func TestKnowledgeLoadsBuiltinAndDocuments(t *testing.T) {
	k := newKnowledge(t, map[string]string{
		"hobbies.md": "Outside of work Aman plays chess and competitive badminton.",
	})
	builtinOnly := newKnowledge(t, nil)
	if k.Len() <= builtinOnly.Len() {
		t.Fatalf("document not indexed: %d vs %d", k.Len(), builtinOnly.Len())
	}

	got := k.Retrieve("Does he play badminton?", 1)
	if len(got) != 1 || !strings.Contains(got[0], "badminton") {
		t.Fatalf("expected hobbies chunk, got %q", got)
	}
	got = k.Retrieve("Which databases, like Redis or PostgreSQL?", 2)
	if len(got) != 2 || !strings.Contains(got[0], "PostgreSQL") {
		t.Fatalf("expected skills chunk first, got %q", got)
	}
}

func TestKnowledgeSkipsBadDocuments(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "resume.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	k, err := NewKnowledge(context.Background(), []string{pdf, filepath.Join(dir, "missing.md")}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewKnowledge: %v", err)
	}
	if k.Len() == 0 {
		t.Fatalf("built-in knowledge should still load")
	}
	if got := k.Retrieve("zzzz qqqq", 100); len(got) != k.Len() {
		t.Fatalf("retrieve should cap at index size: %d vs %d", len(got), k.Len())
	}
}

func TestKnowledgeSplitsLongDocuments(t *testing.T) {
	k := newKnowledge(t, nil)
	long := strings.Repeat("word ", 300)
	doc := &schema.Document{ID: "doc", Content: "short para\n\n" + long + "\n\nanother short"}
	chunks, err := k.split(context.Background(), "doc", []*schema.Document{doc})
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected long paragraph to be cut, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if n := len([]rune(c.text)); n > chunkSize {
			t.Fatalf("chunk over size: %d", n)
		}
		if c.source != "doc" {
			t.Fatalf("unexpected source %q", c.source)
		}
	}
	if !strings.Contains(chunks[0].text, "short para") || !strings.Contains(chunks[len(chunks)-1].text, "another short") {
		t.Fatalf("unexpected boundaries: %q ... %q", chunks[0].text, chunks[len(chunks)-1].text)
	}
}

func TestKnowledgeIndexesResumePDF(t *testing.T) {
	k := newKnowledge(t, nil)
	before := k.Len()

	path := filepath.Join(t.TempDir(), "resume.pdf")
	if err := os.WriteFile(path, onePagePDF("Aman maintained the Zephyrcast telemetry pipeline"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := k.IndexResume(context.Background(), path); err != nil {
		t.Fatalf("IndexResume: %v", err)
	}
	if k.Len() <= before {
		t.Fatalf("resume not indexed: %d vs %d", k.Len(), before)
	}
	got := k.Retrieve("zephyrcast telemetry", 1)
	if len(got) != 1 || !strings.Contains(got[0], "Zephyrcast") {
		t.Fatalf("expected resume chunk, got %q", got)
	}

	// a later reload keeps the resume
	if err := k.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := k.Retrieve("zephyrcast", 1); len(got) != 1 || !strings.Contains(got[0], "Zephyrcast") {
		t.Fatalf("resume lost on reload, got %q", got)
	}
}

// onePagePDF builds a single page document showing text in Helvetica.
func onePagePDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}
