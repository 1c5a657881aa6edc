package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordResolution(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.RecordResolution("fallback")
	c.RecordResolution("fallback")
	c.RecordResolution("primary")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.resolutions.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.resolutions.WithLabelValues("primary")))
}

func TestRecordDispatch(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.RecordDispatch("gemini", OutcomeTimeout, 2*time.Second)
	c.RecordDispatch("", OutcomeCompleted, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("gemini", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dispatches.WithLabelValues("unknown", "completed")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.dispatchSeconds))
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, "unknown", sanitizeLabel("  "))
	assert.Equal(t, "order_success", sanitizeLabel("order success"))
	assert.Len(t, sanitizeLabel(strings.Repeat("x", 100)), maxLabelLen)
}

func TestGetIsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
