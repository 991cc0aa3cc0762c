// Package metrics exposes Prometheus collectors for the mosaic editor.
//
// Collectors are registered on a caller-supplied registry rather than the
// global one so tests and multiple editors in one process stay independent.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mosaicedit"

// Compositor holds the render-loop metrics.
type Compositor struct {
	FramesTotal       prometheus.Counter
	RegionErrorsTotal *prometheus.CounterVec
	ActiveRegions     prometheus.Gauge
	FrameDuration     prometheus.Histogram
	RegionDuration    prometheus.Histogram
}

// NewCompositor creates the compositor collectors and registers them on reg.
// A nil reg leaves them unregistered.
func NewCompositor(reg prometheus.Registerer) *Compositor {
	m := &Compositor{
		FramesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compositor",
			Name:      "frames_total",
			Help:      "Frames composited.",
		}),
		RegionErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compositor",
			Name:      "region_errors_total",
			Help:      "Regions skipped because sampling or painting failed, by stage.",
		}, []string{"stage"}),
		ActiveRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compositor",
			Name:      "active_regions",
			Help:      "Regions composited in the most recent frame.",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compositor",
			Name:      "frame_duration_seconds",
			Help:      "Time spent compositing one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		RegionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compositor",
			Name:      "region_duration_seconds",
			Help:      "Time spent sampling, blurring and painting one region.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesTotal, m.RegionErrorsTotal, m.ActiveRegions, m.FrameDuration, m.RegionDuration)
	}
	return m
}

// ObserveFrame records one composited frame.
func (m *Compositor) ObserveFrame(regions int, d time.Duration) {
	if m == nil {
		return
	}
	m.FramesTotal.Inc()
	m.ActiveRegions.Set(float64(regions))
	m.FrameDuration.Observe(d.Seconds())
}

// ObserveRegion records the time spent on one region.
func (m *Compositor) ObserveRegion(d time.Duration) {
	if m == nil {
		return
	}
	m.RegionDuration.Observe(d.Seconds())
}

// RegionError counts a skipped region.
func (m *Compositor) RegionError(stage string) {
	if m == nil {
		return
	}
	m.RegionErrorsTotal.WithLabelValues(stage).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// WriteSummary prints one line per counter and gauge sample and the
// count/sum of each histogram, sorted by name.
func WriteSummary(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s%s count=%d sum=%g\n", mf.GetName(), labels, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}
