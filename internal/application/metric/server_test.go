package metric

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestServer_Ready(t *testing.T) {
	var backendErr error
	srv := NewServer(func(context.Context) error { return backendErr })

	rec := get(t, srv, "/ready")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	backendErr = errors.New("connection refused")
	rec = get(t, srv, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	// liveness не зависит от хранилища
	assert.Equal(t, http.StatusOK, get(t, srv, "/health").Code)
}

func TestServer_ReadyWithoutCheck(t *testing.T) {
	srv := NewServer(nil)

	assert.Equal(t, http.StatusOK, get(t, srv, "/ready").Code)
}

func TestServer_Metrics(t *testing.T) {
	IncrementPairings()

	rec := get(t, NewServer(nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pairings")
}
