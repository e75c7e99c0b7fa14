// Package ctrl serves the pin control channel: one unix socket, one
// pinning session per accepted connection.
package ctrl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/weka/mpind/internal/pinner"
	"github.com/weka/mpind/pkg/wire"
)

var tracer = otel.Tracer("github.com/weka/mpind/internal/ctrl")

// ErrUnknownCommand means the request carried a command word the server
// does not recognize.
var ErrUnknownCommand = errors.New("unknown command")

const defaultDrainTimeout = 10 * time.Second

// Server accepts control connections and dispatches their commands.
type Server struct {
	backend  pinner.Backend
	pageSize uint64
	log      *zap.Logger

	drainTimeout time.Duration

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func NewServer(backend pinner.Backend, pageSize uint64, log *zap.Logger) *Server {
	return &Server{
		backend:      backend,
		pageSize:     pageSize,
		log:          log,
		drainTimeout: defaultDrainTimeout,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections until ctx is canceled or the listener fails,
// then waits for in-flight sessions to drain. Connections that linger
// past the drain timeout are force-closed so shutdown cannot stall on a
// client that never hangs up; their sessions are still torn down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	context.AfterFunc(ctx, func() {
		ln.Close()
	})

	var g errgroup.Group

	for {
		conn, err := ln.Accept()
		if err != nil {
			waitErr := s.drain(&g)

			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return waitErr
			}

			return errors.Join(fmt.Errorf("accept control connection: %w", err), waitErr)
		}

		s.trackConn(conn)

		g.Go(func() error {
			defer func() {
				conn.Close()
				s.forgetConn(conn)
			}()

			s.handleConn(ctx, conn)

			return nil
		})
	}
}

func (s *Server) drain(g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(s.drainTimeout):
	}

	s.log.Warn("drain timeout expired, closing live control connections")
	s.closeConns()

	return <-done
}

func (s *Server) trackConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conns[conn] = struct{}{}
}

func (s *Server) forgetConn(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, conn)
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for conn := range s.conns {
		conn.Close()
	}
}

// handleConn owns one session for the lifetime of the connection. The
// deferred close guarantees every region the client leaked is released,
// and never races pin/unpin because the read loop has exited by then.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	session := pinner.NewSession(s.backend, s.pageSize, s.log, peerFields(conn)...)
	defer session.Close()

	s.log.Info("control channel opened",
		zap.String("session_id", session.ID),
		zap.String("backend", s.backend.Name()),
	)

	for {
		req, err := wire.ReadRequest(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}

			// The record boundary is lost, answer with a fault and drop
			// the channel.
			s.log.Warn("dropping control channel", zap.String("session_id", session.ID), zap.Error(err))
			_ = wire.WriteCode(conn, wire.CodeFault)

			return
		}

		code := s.dispatch(ctx, session, req)

		if err := wire.WriteCode(conn, code); err != nil {
			s.log.Warn("dropping control channel", zap.String("session_id", session.ID), zap.Error(err))

			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, session *pinner.Session, req wire.Request) wire.Code {
	_, span := tracer.Start(ctx, commandName(req.Cmd))
	defer span.End()

	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.Int64("request.addr", int64(req.Addr)),
		attribute.Int64("request.size", int64(req.Size)),
	)

	var err error

	switch req.Cmd {
	case wire.CmdPin:
		err = session.Pin(req.Addr, req.Size)
	case wire.CmdUnpin:
		err = session.Unpin(req.Addr, req.Size)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownCommand, req.Cmd)
	}

	code := codeForError(err)
	if err != nil {
		s.log.Warn("command failed",
			zap.String("session_id", session.ID),
			zap.String("command", commandName(req.Cmd)),
			zap.Uint64("addr", req.Addr),
			zap.Uint64("size", req.Size),
			zap.Stringer("code", code),
			zap.Error(err),
		)
	}

	return code
}

// codeForError maps the error taxonomy to wire codes. Unclassified errors
// land on the allocation failure slot, the protocol's catch-all.
func codeForError(err error) wire.Code {
	switch {
	case err == nil:
		return wire.CodeOK
	case errors.Is(err, pinner.ErrNotFound):
		return wire.CodeNotFound
	case errors.Is(err, pinner.ErrSizeMismatch):
		return wire.CodeSizeMismatch
	case errors.Is(err, pinner.ErrAlreadyPinned):
		return wire.CodeAlreadyPinned
	case errors.Is(err, pinner.ErrPinFailed):
		return wire.CodePinFailure
	case errors.Is(err, ErrUnknownCommand):
		return wire.CodeUnknownCommand
	case errors.Is(err, wire.ErrFault):
		return wire.CodeFault
	default:
		return wire.CodeAllocFailure
	}
}

func commandName(cmd uint32) string {
	switch cmd {
	case wire.CmdPin:
		return "pin"
	case wire.CmdUnpin:
		return "unpin"
	default:
		return "unknown"
	}
}
