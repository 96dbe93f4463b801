package observability

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerExposesMetrics(t *testing.T) {
	UpdateIndexGauges(3, 42, 1)
	ReindexTotal.WithLabelValues("edit").Inc()

	server := NewServer("127.0.0.1:0")
	addr, err := server.Start()
	require.NoError(t, err)
	defer func() { _ = server.Stop(context.Background()) }()

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "phpsymbols_indexed_symbols 42")
	assert.Contains(t, string(body), `phpsymbols_reindex_total{trigger="edit"}`)
}

func TestUpdateIndexGauges(t *testing.T) {
	UpdateIndexGauges(5, 10, 2)

	assert.Equal(t, float64(5), testutil.ToFloat64(IndexedFiles))
	assert.Equal(t, float64(10), testutil.ToFloat64(IndexedSymbols))
	assert.Equal(t, float64(2), testutil.ToFloat64(OpenReferenceTables))
}

func TestServerStopWithoutStart(t *testing.T) {
	assert.NoError(t, NewServer("127.0.0.1:0").Stop(context.Background()))
}
