package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncDispatch("home", http.StatusOK)
	m.IncDispatch("home", http.StatusOK)
	m.IncDispatch("get_user", http.StatusNotFound)
	m.ObserveDispatchDuration("home", 2*time.Millisecond)
	m.ObserveDispatchDuration("home", 3*time.Millisecond)
	m.IncEntityWrite("User", "create", OutcomeSuccess)

	snap := m.Snapshot()

	if got := snap.Dispatches[DispatchKey{Handler: "home", Status: 200}]; got != 2 {
		t.Errorf("home/200 = %d, want 2", got)
	}
	if got := snap.Dispatches[DispatchKey{Handler: "get_user", Status: 404}]; got != 1 {
		t.Errorf("get_user/404 = %d, want 1", got)
	}
	if snap.DispatchDurationCount != 2 {
		t.Errorf("DispatchDurationCount = %d, want 2", snap.DispatchDurationCount)
	}
	if snap.DispatchDurationTotalNs != (5 * time.Millisecond).Nanoseconds() {
		t.Errorf("DispatchDurationTotalNs = %d, want %d", snap.DispatchDurationTotalNs, (5 * time.Millisecond).Nanoseconds())
	}
	if got := snap.EntityWrites[WriteKey{Kind: "User", Op: "create", Outcome: OutcomeSuccess}]; got != 1 {
		t.Errorf("User/create/success = %d, want 1", got)
	}

	// snapshots are copies
	m.IncDispatch("home", http.StatusOK)
	if got := snap.Dispatches[DispatchKey{Handler: "home", Status: 200}]; got != 2 {
		t.Errorf("snapshot changed after further writes: %d", got)
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	n := NewNoop()
	n.IncDispatch("home", 200)
	n.ObserveDispatchDuration("home", time.Second)
	n.IncEntityWrite("User", "delete", OutcomeError)
}

func TestPrometheusRecorder_Gather(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus() error = %v", err)
	}

	p.IncDispatch("home", http.StatusOK)
	p.ObserveDispatchDuration("home", 10*time.Millisecond)
	p.IncEntityWrite("Dependent", "create", OutcomeError)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"basicapp_dispatch_calls_total",
		"basicapp_dispatch_call_duration_seconds",
		"basicapp_entity_writes_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

func TestNewPrometheus_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	if _, err := NewPrometheus(reg); err != nil {
		t.Fatalf("first NewPrometheus() error = %v", err)
	}
	if _, err := NewPrometheus(reg); err == nil {
		t.Error("second NewPrometheus() on the same registry should fail")
	}
}

func TestPrometheusRecorder_InstrumentAndHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg)
	if err != nil {
		t.Fatalf("NewPrometheus() error = %v", err)
	}

	r := chi.NewRouter()
	r.Use(p.Instrument)
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", Handler(reg))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/things/42", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `basicapp_http_requests_total{method="GET",route="/things/{id}",status="418"} 1`) {
		t.Errorf("expected labelled request counter in exposition, got:\n%s", body)
	}
}
