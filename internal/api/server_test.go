package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openpress/newsimg/internal/metrics"
)

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_Readyz(t *testing.T) {
	t.Parallel()

	server := NewServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ready"`)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	metrics.Init()
	metrics.ObserveFetch("example.com", "success", 128, 10*time.Millisecond)

	server := NewServer(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "newsimg_pages_total")
}

func TestServer_RecoverMiddleware(t *testing.T) {
	t.Parallel()

	handler := recoverMiddleware(zap.NewNop())(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	t.Parallel()

	server := NewServer(zap.NewNop())
	require.NoError(t, server.Shutdown(context.Background()))
}

func TestServer_StartAndShutdown(t *testing.T) {
	t.Parallel()

	server := NewServer(zap.NewNop())
	server.Start("127.0.0.1:0")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
}
