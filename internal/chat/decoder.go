package chat

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DataPrefix marks a line carrying a fragment.
	DataPrefix = "data: "
	// DoneSentinel is the payload that terminates a stream.
	DoneSentinel = "[DONE]"

	readBufferSize = 4 * 1024
)

// Decoder turns raw body chunks into fragments. It keeps the bytes of an
// incomplete UTF-8 sequence and the text of an unterminated line between
// calls to Feed, so chunk boundaries may fall anywhere.
type Decoder struct {
	utf8    transform.Transformer
	raw     []byte
	pending string
	done    bool
}

// NewDecoder returns a decoder ready for the first chunk.
func NewDecoder() *Decoder {
	return &Decoder{utf8: unicode.UTF8.NewDecoder()}
}

// Done reports whether the sentinel has been observed.
func (d *Decoder) Done() bool {
	return d.done
}

// Feed consumes one chunk and returns the fragments completed by it, in
// order. done is true once the sentinel has been seen; nothing is emitted
// after that, neither from the rest of this chunk nor from later chunks.
func (d *Decoder) Feed(chunk []byte) (fragments []string, done bool) {
	if d.done {
		return nil, true
	}
	if len(chunk) == 0 {
		return nil, false
	}
	d.pending += d.decode(chunk)

	lines := strings.Split(d.pending, "\n")
	d.pending = lines[len(lines)-1]
	for _, line := range lines[:len(lines)-1] {
		payload, ok := parseLine(line)
		if !ok {
			continue
		}
		if payload == DoneSentinel {
			d.done = true
			d.pending = ""
			d.raw = nil
			return fragments, true
		}
		fragments = append(fragments, payload)
	}
	return fragments, false
}

// decode converts as many bytes as form complete characters; the tail of a
// split multi-byte sequence stays in d.raw for the next chunk.
func (d *Decoder) decode(chunk []byte) string {
	src := append(d.raw, chunk...)
	d.raw = nil
	// ill-formed bytes expand to a 3-byte U+FFFD
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := d.utf8.Transform(dst, src, false)
		out.Write(dst[:nDst])
		src = src[nSrc:]
		if errors.Is(err, transform.ErrShortSrc) {
			d.raw = append([]byte(nil), src...)
			break
		}
		if (err != nil && !errors.Is(err, transform.ErrShortDst)) || (nSrc == 0 && nDst == 0) {
			break
		}
	}
	return out.String()
}

func parseLine(line string) (string, bool) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, DataPrefix) {
		return "", false
	}
	return line[len(DataPrefix):], true
}

// Reader exposes the fragments of a body as a lazy sequence. Recv returns
// io.EOF after the sentinel or at the end of the body; a trailing line
// without a terminator is discarded. A read error is reported once the
// fragments decoded before it have been delivered.
type Reader struct {
	src   io.Reader
	dec   *Decoder
	buf   []byte
	queue []string
	err   error
}

// NewReader wraps a response body.
func NewReader(src io.Reader) *Reader {
	return &Reader{
		src: src,
		dec: NewDecoder(),
		buf: make([]byte, readBufferSize),
	}
}

// Recv blocks until the next fragment is available.
func (r *Reader) Recv() (string, error) {
	for len(r.queue) == 0 {
		if r.err != nil {
			return "", r.err
		}
		if r.dec.Done() {
			return "", io.EOF
		}
		n, err := r.src.Read(r.buf)
		if n > 0 {
			frags, _ := r.dec.Feed(r.buf[:n])
			r.queue = append(r.queue, frags...)
		}
		if err != nil {
			r.err = err
		}
	}
	frag := r.queue[0]
	r.queue = r.queue[1:]
	return frag, nil
}
