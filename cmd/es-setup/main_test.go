package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isectech/banking-log-generator/shared/common"
)

func newSearchService(t *testing.T, healthStatus int) (*httptest.Server, *int32) {
	t.Helper()

	var puts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPut {
			atomic.AddInt32(&puts, 1)
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
			return
		}
		w.WriteHeader(healthStatus)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	return server, &puts
}

func writeTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index_template.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"index_patterns":["banking-logs-*"]}`), 0o644))
	return path
}

func TestRunRegistersTemplate(t *testing.T) {
	server, puts := newSearchService(t, http.StatusOK)

	err := run(context.Background(), []string{
		"--url", server.URL,
		"--template", writeTemplate(t),
		"--timeout", "2s",
		"--interval", "10ms",
		"--config", t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(puts))
}

func TestRunFailsWhenServiceNeverReady(t *testing.T) {
	server, puts := newSearchService(t, http.StatusServiceUnavailable)

	err := run(context.Background(), []string{
		"--url", server.URL,
		"--template", writeTemplate(t),
		"--timeout", "200ms",
		"--interval", "20ms",
		"--config", t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, common.HasErrorCode(err, common.ErrCodeTimeout))
	assert.Zero(t, atomic.LoadInt32(puts))
}

func TestRunFailsOnMissingTemplate(t *testing.T) {
	server, puts := newSearchService(t, http.StatusOK)

	err := run(context.Background(), []string{
		"--url", server.URL,
		"--template", filepath.Join(t.TempDir(), "missing.json"),
		"--timeout", "2s",
		"--interval", "10ms",
		"--config", t.TempDir(),
	})
	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(puts))
}
