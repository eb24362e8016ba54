package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("docsearch", reg)
	require.NoError(t, err)

	m.IndexLoadsTotal.WithLabelValues("latest", "ok").Inc()
	m.QueriesTotal.WithLabelValues("latest", "hit").Add(2)
	m.IndexDocuments.WithLabelValues("latest").Set(8)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexLoadsTotal.WithLabelValues("latest", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues("latest", "hit")))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.IndexDocuments.WithLabelValues("latest")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "docsearch_index_loads_total")
	assert.Contains(t, names, "docsearch_queries_total")
}

func TestNewDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New("docsearch", reg)
	require.NoError(t, err)

	_, err = New("docsearch", reg)
	assert.Error(t, err)
}
