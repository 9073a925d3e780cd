package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPortalMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveStoreCall("update", "users", nil, 10*time.Millisecond)
	m.ObserveStoreCall("update", "users", errors.New("boom"), time.Millisecond)
	m.ObserveForm("contact", "no_change")
	m.ObserveAccountOp("delete", nil)
	m.ObserveCacheLoad("staff", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeCalls.WithLabelValues("update", "users", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeCalls.WithLabelValues("update", "users", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.formOutcomes.WithLabelValues("contact", "no_change")))
}

func TestPortalMetricsNilSafe(t *testing.T) {
	var m *PortalMetrics
	m.ObserveStoreCall("get", "users", nil, 0)
	m.ObserveForm("personal", "success")
	m.ObserveAccountOp("promote", nil)
	m.ObserveCacheLoad("patient", nil)
}
