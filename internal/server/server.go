package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"taskd/pkg/task"
)

// Options configures a Server.
type Options struct {
	Addr string
	// BufferSize is the size of the one read per connection. Requests longer
	// than this are truncated, never reassembled.
	BufferSize int
	// ReadTimeout bounds the single read. Zero means wait forever.
	ReadTimeout time.Duration
}

// Server accepts raw TCP connections and runs one request/response exchange
// per connection, each on its own goroutine.
type Server struct {
	handler *Handler
	opts    Options
	log     *slog.Logger
	wg      sync.WaitGroup
}

// New creates a Server backed by the given store.
func New(tasks task.Store, opts Options, logger *slog.Logger) *Server {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	return &Server{
		handler: NewHandler(tasks, logger),
		opts:    opts,
		log:     logger,
	}
}

// ListenAndServe binds opts.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	s.log.Info("listening", "addr", ln.Addr().String(), "buffer_size", s.opts.BufferSize)
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled, then closes ln
// and waits for in-flight connections to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(backoff*2, time.Second)
			}
			s.log.Warn("accept failed, retrying", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in connection handler", "remote", remote, "panic", fmt.Sprintf("%v", r))
		}
	}()

	if s.opts.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			s.log.Warn("set read deadline", "remote", remote, "error", err)
			return
		}
	}

	buf, n, err := readRequest(conn, s.opts.BufferSize)
	if err != nil {
		s.log.Warn("read request", "remote", remote, "error", err)
		return
	}

	req := ParseRequest(buf)
	resp := s.handler.Handle(req)
	if _, err := resp.WriteTo(conn); err != nil {
		s.log.Warn("write response", "remote", remote, "error", err)
		return
	}

	s.log.Debug("request served",
		"remote", remote,
		"method", req.Method,
		"path", req.Path,
		"bytes_read", n,
		"status", resp.Status)
}
