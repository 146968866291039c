package main

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer returns from Start as soon as Shutdown begins, like
// http.Server.ListenAndServe, and finishes Shutdown later.
type fakeServer struct {
	closing  chan struct{}
	finished atomic.Bool
	startErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{closing: make(chan struct{})}
}

func (f *fakeServer) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.closing
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	close(f.closing)
	time.Sleep(50 * time.Millisecond)
	f.finished.Store(true)
	return nil
}

func TestServe_WaitsForShutdown(t *testing.T) {
	srv := newFakeServer()
	stop := make(chan struct{})
	var drained atomic.Bool

	drain := func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		drained.Store(true)
		return nil
	}

	close(stop)
	require.NoError(t, serve(stop, srv, drain, time.Second))
	assert.True(t, drained.Load(), "runs drained before return")
	assert.True(t, srv.finished.Load(), "shutdown finished before return")
}

func TestServe_DrainErrorStillShutsDown(t *testing.T) {
	srv := newFakeServer()
	stop := make(chan struct{})
	close(stop)

	drain := func(ctx context.Context) error { return context.DeadlineExceeded }
	require.NoError(t, serve(stop, srv, drain, time.Second))
	assert.True(t, srv.finished.Load())
}

func TestServe_StartError(t *testing.T) {
	srv := newFakeServer()
	srv.startErr = errors.New("listen tcp :8080: address already in use")

	err := serve(make(chan struct{}), srv, func(context.Context) error { return nil }, time.Second)
	assert.ErrorContains(t, err, "address already in use")
}
