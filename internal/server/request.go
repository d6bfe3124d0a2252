package server

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultBufferSize is the size of the single read performed per connection.
// Anything the client sends beyond it is never seen.
const DefaultBufferSize = 1024

const taskPathPrefix = "/tasks/"

var (
	ErrMissingOpenBrace  = errors.New("missing opening bracket")
	ErrMissingCloseBrace = errors.New("missing closing bracket")
	ErrInvalidID         = errors.New("invalid task ID")
)

// Request is what the handler knows about one exchange: the method and path
// from the first line, and the whole decoded buffer for body scanning.
type Request struct {
	Method string
	Path   string
	Raw    string
}

// readRequest performs exactly one Read into a buffer of size bytes. The
// returned buffer is always full length; bytes past n are NUL. EOF is not an
// error here, an empty read just yields an all-NUL buffer.
func readRequest(r io.Reader, size int) ([]byte, int, error) {
	buf := make([]byte, size)
	n, err := r.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, n, err
	}
	return buf, n, nil
}

// ParseRequest decodes buf lossily and splits the method and path out of
// the first line. A missing line or missing tokens leave the fields empty.
func ParseRequest(buf []byte) Request {
	raw := decodeLossy(buf)
	req := Request{Raw: raw}

	line, _, _ := strings.Cut(raw, "\n")
	line = strings.TrimSuffix(line, "\r")
	parts := strings.Fields(line)
	if len(parts) > 0 {
		req.Method = parts[0]
	}
	if len(parts) > 1 {
		req.Path = parts[1]
	}
	return req
}

// decodeLossy converts buf to a string, replacing each maximal ill-formed
// subsequence with one U+FFFD. A lone bad byte is one replacement; a
// truncated multi-byte sequence is also one.
func decodeLossy(buf []byte) string {
	if utf8.Valid(buf) {
		return string(buf)
	}
	var b strings.Builder
	b.Grow(len(buf) + 8)
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r != utf8.RuneError || size > 1 {
			b.Write(buf[i : i+size])
			i += size
			continue
		}
		b.WriteRune(utf8.RuneError)
		i += invalidPrefixLen(buf[i:])
	}
	return b.String()
}

// invalidPrefixLen returns how many bytes of the ill-formed sequence at the
// start of p are covered by a single replacement character.
func invalidPrefixLen(p []byte) int {
	var width int
	lo, hi := byte(0x80), byte(0xBF)
	switch c := p[0]; {
	case c >= 0xC2 && c <= 0xDF:
		width = 2
	case c == 0xE0:
		width, lo = 3, 0xA0
	case c == 0xED:
		width, hi = 3, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		width = 3
	case c == 0xF0:
		width, lo = 4, 0x90
	case c >= 0xF1 && c <= 0xF3:
		width = 4
	case c == 0xF4:
		width, hi = 4, 0x8F
	default:
		return 1
	}
	n := 1
	for n < width && n < len(p) {
		c := p[n]
		if n > 1 {
			lo, hi = 0x80, 0xBF
		}
		if c < lo || c > hi {
			break
		}
		n++
	}
	return n
}

// ExtractJSONBody returns the text from the first '{' to the last '}' of raw,
// inclusive, with NUL padding and surrounding whitespace trimmed. It scans
// the whole request, headers included.
func ExtractJSONBody(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", ErrMissingOpenBrace
	}
	end := strings.LastIndexByte(raw, '}')
	if end < start {
		return "", ErrMissingCloseBrace
	}
	body := strings.TrimRight(raw[start:end+1], "\x00")
	return strings.TrimSpace(body), nil
}

// ParseTaskID extracts the ID from a /tasks/<id> path. Everything after the
// prefix must be a base-10 uint32; a single leading '+' is accepted.
func ParseTaskID(path string) (uint32, error) {
	s, ok := strings.CutPrefix(path, taskPathPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, path)
	}
	digits := strings.TrimPrefix(s, "+")
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	id, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return uint32(id), nil
}
