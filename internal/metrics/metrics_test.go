package metrics

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCompositor(reg)

	m.ObserveFrame(3, 2*time.Millisecond)
	m.ObserveFrame(1, time.Millisecond)
	m.RegionError("sample")
	m.ObserveRegion(time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveRegions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegionErrorsTotal.WithLabelValues("sample")))
}

func TestNilCompositorIsNoop(t *testing.T) {
	var m *Compositor
	m.ObserveFrame(1, time.Millisecond)
	m.ObserveRegion(time.Millisecond)
	m.RegionError("paint")
}

func TestWriteSummary(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCompositor(reg)
	m.ObserveFrame(2, time.Millisecond)
	m.RegionError("paint")

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, reg))
	out := buf.String()

	assert.Contains(t, out, "mosaicedit_compositor_frames_total 1\n")
	assert.Contains(t, out, "mosaicedit_compositor_active_regions 2\n")
	assert.Contains(t, out, "mosaicedit_compositor_region_errors_total stage=paint 1\n")
	assert.Contains(t, out, "mosaicedit_compositor_frame_duration_seconds count=1")
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCompositor(reg).ObserveFrame(1, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mosaicedit_compositor_frames_total 1"))
}
