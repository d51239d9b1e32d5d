// Package supervisor owns the HTTP listener and the process lifecycle.
//
// A Supervisor serves HTTP on a listener, runs background operations, and
// is the single place where the process decides to stop:
//
//   - Serve returns after a graceful drain once its context is cancelled
//     (SIGINT/SIGTERM in production). If the drain was started by a fatal
//     hook it returns ErrFatal, and only after the exit hook ran.
//   - Rejected is the hook for a background operation that failed with
//     nobody waiting on it: the server stops accepting connections, in-flight
//     requests drain for at most DrainTimeout, and the process exits with 1.
//   - Crashed is the hook for a panic outside any request: the process exits
//     with 1 immediately, since its state can no longer be trusted.
//
// Draining happens at most once and exit is called at most once, no matter
// how many failures race to trigger them.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDrainTimeout bounds the drain when Options.DrainTimeout is unset.
const DefaultDrainTimeout = 10 * time.Second

// ErrFatal is returned by Serve when the server stopped because of a
// failure outside request handling.
var ErrFatal = errors.New("supervisor: stopped after a fatal failure")

// Server is the subset of *http.Server the Supervisor drives.
type Server interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
	Close() error
}

// Options configures a Supervisor.
type Options struct {
	// DrainTimeout bounds how long in-flight requests may take to finish
	// once shutdown starts. Connections still open afterwards are closed.
	DrainTimeout time.Duration
	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
}

// Supervisor runs an HTTP server and background operations, and turns
// failures outside request handling into an orderly process exit.
type Supervisor struct {
	srv     Server
	ln      net.Listener
	timeout time.Duration
	exit    func(int)

	// Background operations run under ctx; it is cancelled on drain.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	drainOnce sync.Once
	exitOnce  sync.Once
	drained   chan struct{} // closed once drain has finished
	exited    chan struct{} // closed once the exit hook returned
	fatal     atomic.Bool
}

// New returns a Supervisor that will serve srv on ln.
func New(srv Server, ln net.Listener, opts Options) *Supervisor {
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = DefaultDrainTimeout
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		srv:     srv,
		ln:      ln,
		timeout: opts.DrainTimeout,
		exit:    opts.Exit,
		ctx:     ctx,
		cancel:  cancel,
		drained: make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

// Serve accepts connections until ctx is cancelled or a fatal hook drains
// the server, and returns once the drain has finished. It returns nil after
// a requested shutdown, ErrFatal after a fatal one, and a wrapped error if
// the server stopped on its own.
func (s *Supervisor) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(s.ln) }()

	log.Info().Str("addr", s.ln.Addr().String()).Msg("server listening")

	select {
	case <-ctx.Done():
		log.Info().Dur("timeout", s.timeout).Msg("shutdown requested; draining")
		s.drain()
		<-errCh
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			s.cancel()
			return fmt.Errorf("serve: %w", err)
		}
		// Only drain shuts the server down, and Serve returns as soon as
		// Shutdown starts; in-flight requests are still running here.
		<-s.drained
	}

	if s.fatal.Load() {
		<-s.exited
		return ErrFatal
	}
	log.Info().Msg("server stopped")
	return nil
}

// Go runs fn in its own goroutine with a context that is cancelled when the
// Supervisor drains. A non-nil error returned before that point is reported
// to Rejected; a panic is reported to Crashed.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		rec, stack, err := s.run(fn)
		switch {
		case rec != nil:
			s.Crashed(rec, stack)
		case err == nil:
		case s.ctx.Err() != nil:
			log.Debug().Err(err).Str("op", name).Msg("background operation stopped during shutdown")
		default:
			s.Rejected(name, err)
		}
	}()
}

// run calls fn and marks it finished before the caller reacts to the
// outcome, so a drain triggered by the failure does not wait on fn itself.
func (s *Supervisor) run(fn func(ctx context.Context) error) (rec any, stack []byte, err error) {
	defer s.wg.Done()
	defer func() {
		if v := recover(); v != nil {
			rec, stack = v, debug.Stack()
		}
	}()
	return nil, nil, fn(s.ctx)
}

// Rejected handles a background failure nobody observed: it logs err,
// drains the server within the configured bound, and exits with status 1.
func (s *Supervisor) Rejected(name string, err error) {
	log.Error().Err(err).Str("op", name).Msg("unhandled background failure; shutting down")
	s.fatal.Store(true)
	s.drain()
	s.terminate(1)
}

// Crashed handles a panic outside request handling: it logs value and
// stack and exits with status 1 without draining.
func (s *Supervisor) Crashed(value any, stack []byte) {
	log.Error().
		Interface("panic", value).
		Bytes("stack", stack).
		Msg("uncaught panic; shutting down")
	s.fatal.Store(true)
	s.terminate(1)
}

// Guard recovers a panic on the calling goroutine and reports it to
// Crashed. Use it as the first deferred call of main and of any goroutine
// not started through Go:
//
//	defer sup.Guard()
func (s *Supervisor) Guard() {
	if v := recover(); v != nil {
		s.Crashed(v, debug.Stack())
	}
}

// Context is cancelled when the Supervisor starts draining.
func (s *Supervisor) Context() context.Context { return s.ctx }

func (s *Supervisor) drain() {
	s.drainOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Dur("timeout", s.timeout).Msg("drain incomplete; closing remaining connections")
			_ = s.srv.Close()
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			log.Warn().Msg("background operations still running after drain timeout")
		}
		close(s.drained)
	})
}

func (s *Supervisor) terminate(code int) {
	s.exitOnce.Do(func() {
		s.exit(code)
		close(s.exited)
	})
}
