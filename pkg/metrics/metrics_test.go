package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	// Registering the same set twice on one registry must fail.
	assert.Panics(t, func() { New(reg) })
}

func TestSubscriptionOpCountsByResult(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SubscriptionOp("subscribe", nil)
	m.SubscriptionOp("subscribe", nil)
	m.SubscriptionOp("renew", errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SubscriptionOps.WithLabelValues("subscribe", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubscriptionOps.WithLabelValues("renew", ResultError)))
}

func TestNotifyAndGauges(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Notify(NotifyRouted)
	m.Notify(NotifyUnknownSID)
	m.Notify(NotifyUnknownSID)
	m.SetSubscriptionsActive(3)
	m.SetNotifyQueueDepth(7)
	m.SetBreakerState("10.0.0.5:1400", 2)
	m.StateWrite(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotifyTotal.WithLabelValues(NotifyRouted)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotifyTotal.WithLabelValues(NotifyUnknownSID)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SubscriptionsActive))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.NotifyQueueDepth))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("10.0.0.5:1400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateWrites.WithLabelValues("true")))
}

func TestControlActionObservesLatency(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ControlAction("Play", 20*time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ControlActions.WithLabelValues("Play", ResultOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ControlDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SubscriptionOp("subscribe", nil)
		m.SetSubscriptionsActive(1)
		m.Notify(NotifyDropped)
		m.NotifyDispatched(time.Millisecond)
		m.SetNotifyQueueDepth(1)
		m.ControlAction("Stop", time.Second, nil)
		m.SetBreakerState("h", 0)
		m.SetDevicesKnown(1)
		m.StateWrite(false)
	})
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.SetDevicesKnown(3)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "upnp_devices_known 3")
	assert.Contains(t, body, "go_goroutines")
}
