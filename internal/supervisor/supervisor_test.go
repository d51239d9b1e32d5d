package supervisor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Logger = zerolog.New(io.Discard)
	m.Run()
}

type fakeServer struct {
	block bool // Shutdown waits for its deadline

	shutdowns atomic.Int32
	closes    atomic.Int32
	stopOnce  sync.Once
	stop      chan struct{}
}

func newFakeServer(block bool) *fakeServer {
	return &fakeServer{block: block, stop: make(chan struct{})}
}

func (f *fakeServer) Serve(net.Listener) error {
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdowns.Add(1)
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.stopOnce.Do(func() { close(f.stop) })
	return nil
}

func (f *fakeServer) Close() error {
	f.closes.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return nil
}

type exitRecorder struct {
	calls atomic.Int32
	codes chan int
}

func newExitRecorder() *exitRecorder { return &exitRecorder{codes: make(chan int, 8)} }

func (e *exitRecorder) exit(code int) {
	e.calls.Add(1)
	e.codes <- code
}

func (e *exitRecorder) wait(t *testing.T) int {
	t.Helper()
	select {
	case c := <-e.codes:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("exit was not called")
		return -1
	}
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln
}

func TestServe_SignalDrainsInFlightRequests(t *testing.T) {
	ln := listen(t)
	started := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte("done"))
	})}
	ex := newExitRecorder()
	sup := New(srv, ln, Options{DrainTimeout: 2 * time.Second, Exit: ex.exit})

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- sup.Serve(ctx) }()

	type result struct {
		body string
		err  error
	}
	got := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			got <- result{err: err}
			return
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		got <- result{body: string(b), err: err}
	}()

	<-started
	cancel()

	r := <-got
	require.NoError(t, r.err)
	assert.Equal(t, "done", r.body)
	require.NoError(t, <-served)
	assert.Zero(t, ex.calls.Load(), "signal shutdown must not call exit")
	assert.Error(t, sup.Context().Err())
}

func TestServe_DrainIsBounded(t *testing.T) {
	srv := newFakeServer(true)
	sup := New(srv, listen(t), Options{DrainTimeout: 50 * time.Millisecond, Exit: newExitRecorder().exit})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sup.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the drain timeout")
	}
	assert.EqualValues(t, 1, srv.shutdowns.Load())
	assert.EqualValues(t, 1, srv.closes.Load())
}

func TestServe_ListenerFailureIsReturned(t *testing.T) {
	ln := listen(t)
	_ = ln.Close()
	sup := New(&http.Server{}, ln, Options{Exit: newExitRecorder().exit})

	err := sup.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve:")
}

func TestGo_FailureDrainsAndExits1(t *testing.T) {
	srv := newFakeServer(false)
	ex := newExitRecorder()
	sup := New(srv, listen(t), Options{DrainTimeout: time.Second, Exit: ex.exit})

	sup.Go("janitor", func(context.Context) error { return errors.New("disk I/O error") })

	assert.Equal(t, 1, ex.wait(t))
	assert.EqualValues(t, 1, srv.shutdowns.Load())
	assert.Error(t, sup.Context().Err())
}

func TestServe_BackgroundFailureDrainsThenReturnsFatal(t *testing.T) {
	ln := listen(t)
	started := make(chan struct{})
	var finished atomic.Bool
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(300 * time.Millisecond)
		finished.Store(true)
		_, _ = w.Write([]byte("done"))
	})}

	var exitedBeforeReturn atomic.Int32
	ex := newExitRecorder()
	sup := New(srv, ln, Options{DrainTimeout: 2 * time.Second, Exit: ex.exit})

	served := make(chan error, 1)
	go func() {
		err := sup.Serve(context.Background())
		exitedBeforeReturn.Store(ex.calls.Load())
		served <- err
	}()

	body := make(chan string, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			body <- "error: " + err.Error()
			return
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body <- string(b)
	}()

	<-started
	sup.Go("janitor", func(context.Context) error { return errors.New("disk I/O error") })

	select {
	case err := <-served:
		assert.ErrorIs(t, err, ErrFatal)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after the background failure")
	}
	assert.True(t, finished.Load(), "Serve returned before the in-flight request finished")
	assert.EqualValues(t, 1, exitedBeforeReturn.Load(), "exit must run before Serve returns")
	assert.Equal(t, 1, ex.wait(t))
	assert.Equal(t, "done", <-body)
}

func TestGo_PanicCrashesWithoutDrain(t *testing.T) {
	srv := newFakeServer(false)
	ex := newExitRecorder()
	sup := New(srv, listen(t), Options{Exit: ex.exit})

	sup.Go("worker", func(context.Context) error { panic("corrupt state") })

	assert.Equal(t, 1, ex.wait(t))
	assert.Zero(t, srv.shutdowns.Load())
}

func TestGo_ErrorAfterShutdownIsIgnored(t *testing.T) {
	srv := newFakeServer(false)
	ex := newExitRecorder()
	sup := New(srv, listen(t), Options{Exit: ex.exit})

	stopped := make(chan struct{})
	sup.Go("ticker", func(ctx context.Context) error {
		defer close(stopped)
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sup.Serve(ctx))
	<-stopped

	assert.Zero(t, ex.calls.Load())
}

func TestFatalHooks_ExitExactlyOnce(t *testing.T) {
	srv := newFakeServer(false)
	ex := newExitRecorder()
	sup := New(srv, listen(t), Options{DrainTimeout: time.Second, Exit: ex.exit})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); sup.Rejected("op", errors.New("boom")) }()
		go func() { defer wg.Done(); sup.Crashed("kaboom", nil) }()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ex.calls.Load())
	assert.LessOrEqual(t, srv.shutdowns.Load(), int32(1))
}

func TestGuard_RoutesPanicToCrashed(t *testing.T) {
	ex := newExitRecorder()
	sup := New(newFakeServer(false), listen(t), Options{Exit: ex.exit})

	func() {
		defer sup.Guard()
		panic("outside any request")
	}()

	assert.Equal(t, 1, ex.wait(t))
}

func TestGuard_NoPanicNoExit(t *testing.T) {
	ex := newExitRecorder()
	sup := New(newFakeServer(false), listen(t), Options{Exit: ex.exit})

	func() {
		defer sup.Guard()
	}()

	assert.Zero(t, ex.calls.Load())
}

func TestNew_Defaults(t *testing.T) {
	sup := New(newFakeServer(false), listen(t), Options{})
	assert.Equal(t, DefaultDrainTimeout, sup.timeout)
	assert.NotNil(t, sup.exit)
}
