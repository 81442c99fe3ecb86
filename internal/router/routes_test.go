package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/metrics"
)

// fakeService satisfies controller.Service in router tests.
type fakeService struct{}

func (fakeService) CreateRequest(ctx context.Context, user data.UserId, metadata data.AudioMetadata, opts data.RequestOptions, channel data.RadioManagerChannelId) (data.RequestId, error) {
	return "req-1", nil
}

func (fakeService) CancelRequest(ctx context.Context, user data.UserId, req data.RequestId) error {
	return nil
}

func (fakeService) Statuses(ctx context.Context, user data.UserId) (map[data.RequestId]data.RequestStatus, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthzOK(t *testing.T) {
	r := New(testLogger(), fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
}

func TestReadyzSuccess(t *testing.T) {
	probe := Probe{Name: "tracker", Check: func(ctx context.Context) error { return nil }}
	r := New(testLogger(), fakeService{}, nil, probe)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyzFailure(t *testing.T) {
	ok := Probe{Name: "tracker", Check: func(ctx context.Context) error { return nil }}
	bad := Probe{Name: "transmission", Check: func(ctx context.Context) error { return errors.New("nope") }}
	r := New(testLogger(), fakeService{}, nil, ok, bad)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "transmission") {
		t.Fatalf("body = %q, want failing probe name", w.Body.String())
	}
}

func TestMetricsEndpointEmitsFamilies(t *testing.T) {
	metrics.Register()
	metrics.RequestSteps.WithLabelValues("GetTopicsIntoQueue").Inc()
	metrics.TransmissionRPCLatency.WithLabelValues("torrent-get").Observe(0.02)
	metrics.ActiveRequests.Set(2)

	r := New(testLogger(), fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "radiofetch_request_steps_total") {
		t.Fatalf("missing request_steps_total in metrics: %s", body)
	}
	if !strings.Contains(body, "radiofetch_transmission_rpc_latency_seconds_count") {
		t.Fatalf("missing transmission latency histogram in metrics: %s", body)
	}
	if !strings.Contains(body, "radiofetch_active_requests") {
		t.Fatalf("missing active_requests gauge in metrics: %s", body)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	r := New(testLogger(), fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/requests?user_id=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
