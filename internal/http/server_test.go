package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"device-activity-service/internal/config"
	"device-activity-service/internal/controller"
	"device-activity-service/internal/metrics"
	"device-activity-service/internal/model"
	"device-activity-service/internal/service"
	"device-activity-service/internal/testdata/mockservice"
)

func newTestServer(t *testing.T) (*Server, *mockservice.Service, *metrics.Prometheus) {
	t.Helper()
	svc := &mockservice.Service{}
	rec := metrics.NewPrometheus()
	srv := NewServer(&config.Config{}, controller.NewActivityController(svc), rec.Registry(), zerolog.Nop())
	return srv, svc, rec
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, rec := newTestServer(t)
	rec.EventAppended("home")

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `activity_events_appended_total{environment="home"} 1`)
}

func TestErrorsAreJSON(t *testing.T) {
	srv, svc, _ := newTestServer(t)
	svc.On("DeviceUsage", mock.Anything, "home", "d1").
		Return(model.DeviceUsageSummary{}, &service.ValidationError{Message: "device is required"})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/environments/home/devices/d1/usage", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"device is required"}`, string(body))
}
