// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeServer struct {
	mu        sync.Mutex
	listenErr error
	stop      chan struct{}
	shutdowns int
}

func newFakeServer(listenErr error) *fakeServer {
	return &fakeServer{listenErr: listenErr, stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	close(f.stop)
	return nil
}

func TestHTTPServerService_GracefulShutdown(t *testing.T) {
	srv := newFakeServer(nil)
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return")
	}
	if srv.shutdowns != 1 {
		t.Errorf("shutdowns = %d", srv.shutdowns)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_ListenFailure(t *testing.T) {
	svc := NewHTTPServerService(newFakeServer(errors.New("address in use")), 0)
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("expected listen error")
	}
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("default shutdown timeout = %v", svc.shutdownTimeout)
	}
}

type fakeHub struct{ ran bool }

func (h *fakeHub) RunWithContext(ctx context.Context) error {
	h.ran = true
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubService(t *testing.T) {
	hub := &fakeHub{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewWebSocketHubService(hub).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if !hub.ran {
		t.Error("hub was not run")
	}
}

type fakeScheduler struct {
	startErr      error
	started, stop int
}

func (f *fakeScheduler) Start(context.Context) error {
	f.started++
	return f.startErr
}

func (f *fakeScheduler) Stop() error {
	f.stop++
	return nil
}

func TestSchedulerService(t *testing.T) {
	s := &fakeScheduler{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewSchedulerService(s).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if s.started != 1 || s.stop != 1 {
		t.Errorf("start/stop = %d/%d", s.started, s.stop)
	}

	failing := &fakeScheduler{startErr: errors.New("bad location")}
	if err := NewSchedulerService(failing).Serve(context.Background()); err == nil {
		t.Error("expected start error")
	}
	if failing.stop != 0 {
		t.Error("Stop() called after failed Start()")
	}
}
