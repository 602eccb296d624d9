package chat

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func feedAll(d *Decoder, chunks ...string) ([]string, bool) {
	var out []string
	var done bool
	for _, c := range chunks {
		frags, fin := d.Feed([]byte(c))
		out = append(out, frags...)
		done = fin
	}
	return out, done
}

func TestDecoderStopsAtSentinel(t *testing.T) {
	got, done := feedAll(NewDecoder(), "data: A\n", "data: B\n", "data: [DONE]\n", "data: C\n")
	if !done {
		t.Fatalf("expected decoder to be done")
	}
	if strings.Join(got, ",") != "A,B" {
		t.Fatalf("unexpected fragments %q", got)
	}
}

func TestDecoderSentinelMidChunk(t *testing.T) {
	d := NewDecoder()
	got, done := d.Feed([]byte("data: A\ndata: [DONE]\ndata: C\n"))
	if !done || len(got) != 1 || got[0] != "A" {
		t.Fatalf("unexpected result %q done=%v", got, done)
	}
	if frags, fin := d.Feed([]byte("data: D\n")); frags != nil || !fin {
		t.Fatalf("decoder emitted after sentinel: %q", frags)
	}
}

func TestDecoderSentinelSplitAcrossChunks(t *testing.T) {
	got, done := feedAll(NewDecoder(), "data: x\ndata: [DO", "NE]\n", "data: y\n")
	if !done || len(got) != 1 || got[0] != "x" {
		t.Fatalf("unexpected result %q done=%v", got, done)
	}
}

func TestDecoderChunkBoundaryIntegrity(t *testing.T) {
	lines := []struct {
		name string
		line string
		want string
	}{
		{name: "ascii", line: "data: hello\n", want: "hello"},
		{name: "multibyte", line: "data: héllo 👋\n", want: "héllo 👋"},
		{name: "crlf", line: "data: hello\r\n", want: "hello"},
	}
	for _, tc := range lines {
		for cut := 0; cut <= len(tc.line); cut++ {
			d := NewDecoder()
			got, _ := feedAll(d, tc.line[:cut], tc.line[cut:])
			if len(got) != 1 || got[0] != tc.want {
				t.Fatalf("%s: split at %d gave %q", tc.name, cut, got)
			}
		}
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	stream := "data: 你好\ndata: wörld\n: keepalive\ndata: [DONE]\n"
	d := NewDecoder()
	var got []string
	for i := 0; i < len(stream); i++ {
		frags, _ := d.Feed([]byte{stream[i]})
		got = append(got, frags...)
	}
	if strings.Join(got, "|") != "你好|wörld" {
		t.Fatalf("unexpected fragments %q", got)
	}
}

func TestDecoderIgnoresUnprefixedLines(t *testing.T) {
	got, done := feedAll(NewDecoder(), "event: message\n", ": ping\n\n", "data:nospace\n", "data: ok\n")
	if done {
		t.Fatalf("decoder should not be done")
	}
	if len(got) != 1 || got[0] != "ok" {
		t.Fatalf("unexpected fragments %q", got)
	}
}

func TestDecoderEmptyChunkAndPayload(t *testing.T) {
	d := NewDecoder()
	if frags, done := d.Feed(nil); frags != nil || done {
		t.Fatalf("empty chunk should be a no-op")
	}
	got, _ := d.Feed([]byte("data: \ndata: a\n"))
	if len(got) != 2 || got[0] != "" || got[1] != "a" {
		t.Fatalf("unexpected fragments %q", got)
	}
}

func TestDecoderInvalidUTF8(t *testing.T) {
	got, _ := feedAll(NewDecoder(), "data: a\xffb\n")
	if len(got) != 1 || got[0] != "a�b" {
		t.Fatalf("expected replacement character, got %q", got)
	}
}

func TestReaderRecv(t *testing.T) {
	body := "data: one\n\ndata: two\n\ndata: [DONE]\n\ndata: three\n\n"
	r := NewReader(iotest.OneByteReader(strings.NewReader(body)))
	var got []string
	for {
		frag, err := r.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		got = append(got, frag)
	}
	if strings.Join(got, ",") != "one,two" {
		t.Fatalf("unexpected fragments %q", got)
	}
}

func TestReaderDropsUnterminatedTail(t *testing.T) {
	r := NewReader(strings.NewReader("data: a\ndata: b"))
	frag, err := r.Recv()
	if err != nil || frag != "a" {
		t.Fatalf("expected a, got %q %v", frag, err)
	}
	if _, err := r.Recv(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderDeliversFragmentsBeforeError(t *testing.T) {
	boom := errors.New("connection reset")
	src := io.MultiReader(strings.NewReader("data: He\ndata: llo\n"), iotest.ErrReader(boom))
	r := NewReader(src)
	var got []string
	var err error
	for {
		var frag string
		frag, err = r.Recv()
		if err != nil {
			break
		}
		got = append(got, frag)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
	if strings.Join(got, "") != "Hello" {
		t.Fatalf("fragments lost before error: %q", got)
	}
}
