package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

var statusText = map[int]string{
	200: "OK",
	201: "Created",
	400: "Bad Request",
	404: "Not Found",
}

// Response is a literal HTTP/1.1 reply. JSON responses carry a Content-Type
// header; text responses carry no headers at all.
type Response struct {
	Status int
	value  any
	text   string
	isJSON bool
}

func writeJSON(status int, v any) Response {
	return Response{Status: status, value: v, isJSON: true}
}

func writeError(status int, msg string) Response {
	return Response{Status: status, text: msg}
}

// Bytes renders the full response.
func (r Response) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", r.Status, statusText[r.Status])
	if !r.isJSON {
		buf.WriteString("\r\n")
		buf.WriteString(r.text)
		return buf.Bytes(), nil
	}

	buf.WriteString("Content-Type: application/json\r\n\r\n")
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.value); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	// Encode terminates with a newline; the wire format does not.
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// WriteTo writes the response in a single call.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	b, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}
