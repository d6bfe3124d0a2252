package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskd/pkg/task"
)

func startServer(t *testing.T, store task.Store, opts Options) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(store, opts, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return ln.Addr().String()
}

func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	resp, err := dialExchange(addr, raw)
	require.NoError(t, err)
	return resp
}

func dialExchange(addr, raw string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return "", err
	}
	if _, err := io.WriteString(conn, raw); err != nil {
		return "", err
	}
	resp, err := io.ReadAll(conn)
	return string(resp), err
}

func splitResponse(t *testing.T, resp string) (string, string) {
	t.Helper()
	head, body, ok := strings.Cut(resp, "\r\n\r\n")
	require.True(t, ok, "no header terminator in %q", resp)
	status, _, _ := strings.Cut(head, "\r\n")
	return status, body
}

func TestServerEndToEnd(t *testing.T) {
	addr := startServer(t, task.NewMemStore(), Options{})

	status, body := splitResponse(t, roundTrip(t, addr, request("POST", "/tasks", `{"description":"buy milk"}`)))
	assert.Equal(t, "HTTP/1.1 201 Created", status)
	var created task.Task
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, "buy milk", created.Description)
	assert.False(t, created.Completed)

	status, body = splitResponse(t, roundTrip(t, addr, request("GET", "/tasks", "")))
	assert.Equal(t, "HTTP/1.1 200 OK", status)
	var listed []task.Task
	require.NoError(t, json.Unmarshal([]byte(body), &listed))
	assert.Equal(t, []task.Task{created}, listed)

	status, body = splitResponse(t, roundTrip(t, addr, request("PUT", fmt.Sprintf("/tasks/%d", created.ID), `{"description":"buy oat milk"}`)))
	assert.Equal(t, "HTTP/1.1 200 OK", status)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"description":"buy oat milk","completed":false}`, created.ID), body)

	status, _ = splitResponse(t, roundTrip(t, addr, request("DELETE", fmt.Sprintf("/tasks/%d", created.ID), "")))
	assert.Equal(t, "HTTP/1.1 200 OK", status)

	status, body = splitResponse(t, roundTrip(t, addr, request("DELETE", fmt.Sprintf("/tasks/%d", created.ID), "")))
	assert.Equal(t, "HTTP/1.1 404 Not Found", status)
	assert.Equal(t, "Task not found", body)
}

func TestServerConcurrentCreates(t *testing.T) {
	const n = 50
	store := task.NewMemStore()
	addr := startServer(t, store, Options{})

	var wg sync.WaitGroup
	ids := make(chan uint32, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := dialExchange(addr, request("POST", "/tasks", fmt.Sprintf(`{"description":"task %d"}`, i)))
			if !assert.NoError(t, err) {
				return
			}
			_, body, _ := strings.Cut(resp, "\r\n\r\n")
			var created task.Task
			if assert.NoError(t, json.Unmarshal([]byte(body), &created)) {
				ids <- created.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint32]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, store.Count())
}

func TestServerReadTimeoutClosesIdleConnection(t *testing.T) {
	addr := startServer(t, task.NewMemStore(), Options{ReadTimeout: 50 * time.Millisecond})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestServerEmptyRequestGetsNotFound(t *testing.T) {
	addr := startServer(t, task.NewMemStore(), Options{})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 404 Not Found\r\n\r\nNot Found", string(resp))
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(task.NewMemStore(), Options{}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond)
	assert.Error(t, err)
}
