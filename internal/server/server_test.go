package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/drlau/megumin.love/internal/metrics"
)

func TestHealthHandlerWithoutDatabase(t *testing.T) {
	s := New("127.0.0.1:0", nil, "release", metrics.NewProvider(false), false)

	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy","database":"connected"}`, w.Body.String())
}

func TestHealthHandlerReportsUnreachableDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(context.DeadlineExceeded)

	s := New("127.0.0.1:0", db, "release", metrics.NewProvider(false), false)

	w := httptest.NewRecorder()
	s.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetricsEndpointOnlyWhenEnabled(t *testing.T) {
	enabled := New("127.0.0.1:0", nil, "release", metrics.NewProvider(false), true)
	w := httptest.NewRecorder()
	enabled.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	disabled := New("127.0.0.1:0", nil, "release", metrics.NewProvider(false), false)
	w = httptest.NewRecorder()
	disabled.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := New("127.0.0.1:0", nil, "release", metrics.NewProvider(false), false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}
