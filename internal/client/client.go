// Package client talks to a taskd server over raw TCP, one connection per
// request, using the same minimal HTTP/1.1 subset the server understands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"taskd/pkg/task"
)

// maxRequest mirrors the server's default single-read buffer. Larger
// requests would be truncated server-side, so they are refused here.
const maxRequest = 1024

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client is a taskd client.
type Client struct {
	Addr    string
	Timeout time.Duration
}

// New creates a Client for addr with a 10 second per-request timeout.
func New(addr string) *Client {
	return &Client{Addr: addr, Timeout: 10 * time.Second}
}

// List returns all tasks.
func (c *Client) List(ctx context.Context) ([]task.Task, error) {
	var tasks []task.Task
	if err := c.do(ctx, "GET", "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Create adds a task.
func (c *Client) Create(ctx context.Context, description string) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, "POST", "/tasks", task.NewTask{Description: description}, &t)
	return t, err
}

// Update changes the fields set in u.
func (c *Client) Update(ctx context.Context, id uint32, u task.UpdateTask) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, "PUT", taskPath(id), u, &t)
	return t, err
}

// Delete removes a task and returns it.
func (c *Client) Delete(ctx context.Context, id uint32) (task.Task, error) {
	var t task.Task
	err := c.do(ctx, "DELETE", taskPath(id), nil, &t)
	return t, err
}

func taskPath(id uint32) string {
	return "/tasks/" + strconv.FormatUint(uint64(id), 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := buildRequest(c.Addr, method, path, body)
	if err != nil {
		return err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	}

	if _, err := conn.Write(req); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	raw, err := io.ReadAll(conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	code, payload, err := parseResponse(raw)
	if err != nil {
		return err
	}
	if code < 200 || code > 299 {
		return &StatusError{Code: code, Message: string(payload)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func buildRequest(addr, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\nHost: %s\r\n", method, path, addr)
	if payload != nil {
		fmt.Fprintf(&buf, "Content-Type: application/json\r\nContent-Length: %d\r\n", len(payload))
	}
	buf.WriteString("\r\n")
	buf.Write(payload)

	if buf.Len() > maxRequest {
		return nil, fmt.Errorf("request is %d bytes, server reads at most %d", buf.Len(), maxRequest)
	}
	return buf.Bytes(), nil
}

// parseResponse splits a raw response into status code and body.
func parseResponse(raw []byte) (int, []byte, error) {
	head, body, ok := bytes.Cut(raw, []byte("\r\n\r\n"))
	if !ok {
		return 0, nil, fmt.Errorf("malformed response: %q", truncate(raw, 64))
	}
	statusLine, _, _ := bytes.Cut(head, []byte("\r\n"))
	fields := strings.Fields(string(statusLine))
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0, nil, fmt.Errorf("malformed status line: %q", statusLine)
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, nil, fmt.Errorf("malformed status code %q: %w", fields[1], err)
	}
	return code, body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
