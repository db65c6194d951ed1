package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestServer_ServeAndShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	s := New(handler, Options{ShutdownTimeout: time.Second}, discardLogger())

	var order []string
	s.OnShutdown("database", func(context.Context) error {
		order = append(order, "database")
		return nil
	})
	s.OnShutdown("metrics", func(context.Context) error {
		order = append(order, "metrics")
		return nil
	})

	ln := listen(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	if len(order) != 2 || order[0] != "metrics" || order[1] != "database" {
		t.Errorf("expected reverse shutdown order, got %v", order)
	}
}

func TestServer_ShutdownErrors(t *testing.T) {
	s := New(http.NotFoundHandler(), Options{ShutdownTimeout: time.Second}, discardLogger())

	errClose := errors.New("close failed")
	s.OnShutdown("database", func(context.Context) error { return errClose })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Serve(ctx, listen(t))
	if !errors.Is(err, errClose) {
		t.Fatalf("expected close error, got %v", err)
	}
}

func TestServer_Addr(t *testing.T) {
	s := New(http.NotFoundHandler(), Options{Port: 9090}, nil)
	if s.Addr() != ":9090" {
		t.Errorf("expected :9090, got %s", s.Addr())
	}
}
