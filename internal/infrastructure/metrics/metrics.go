package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"connector-vision/internal/domain/entity"
	"connector-vision/internal/domain/port"
)

const namespace = "connector_vision"

// Collector: метрики инспекции в собственном реестре.
type Collector struct {
	registry *prometheus.Registry

	fps      prometheus.Gauge
	verdicts *prometheus.CounterVec
	duration prometheus.Histogram
	gap      *prometheus.GaugeVec
	degraded prometheus.Counter
}

var _ port.OutcomeRecorder = (*Collector)(nil)

// NewCollector создаёт и регистрирует метрики.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		fps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "camera_fps",
			Help:      "Measured camera frame rate",
		}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inspections_total",
			Help:      "Inspections by verdict",
		}, []string{"verdict"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inspection_duration_seconds",
			Help:      "Time spent in one inspection",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1, 0.25},
		}),
		gap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gap_width_pixels",
			Help:      "Last smoothed gap width per measurement line",
		}, []string{"line"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_profiles_total",
			Help:      "Line profiles averaged over too few band lines",
		}),
	}
	c.registry.MustRegister(c.fps, c.verdicts, c.duration, c.gap, c.degraded)
	return c
}

// Record учитывает результат инспекции.
func (c *Collector) Record(o *entity.InspectionOutcome) {
	if o == nil {
		return
	}
	c.verdicts.WithLabelValues(o.Verdict()).Inc()
	c.duration.Observe(o.Duration.Seconds())
	for _, m := range o.Lines {
		c.gap.WithLabelValues(strconv.Itoa(m.LineIndex + 1)).Set(m.GapWidth)
		if m.Degraded {
			c.degraded.Inc()
		}
	}
}

// SetFPS обновляет замер скорости камеры.
func (c *Collector) SetFPS(v float64) {
	c.fps.Set(v)
}

// ResetLines очищает значения по линиям (смена модели).
func (c *Collector) ResetLines() {
	c.gap.Reset()
}

// Handler отдаёт /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
