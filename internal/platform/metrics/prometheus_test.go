package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServer_ServesRegistry(t *testing.T) {
	m := NewMetricsManager("marketplace_client")
	m.CacheLookupsTotal.WithLabelValues("listings", "hit").Inc()

	srv := httptest.NewServer(NewMetricsServer("0", m.Registry).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `marketplace_client_query_cache_lookups_total{result="hit",scope="listings"} 1`)
}

func TestStartMetricsServer_StopsOnShutdown(t *testing.T) {
	server := NewMetricsServer("0", NewMetricsManager("marketplace_client").Registry)
	done := make(chan error, 1)
	go func() { done <- StartMetricsServer(server, logger.NewNop()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
