// Package telemetry exports simulator counters as Prometheus metrics.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements sim.Recorder.
type Recorder struct {
	started   *prometheus.CounterVec
	finished  *prometheus.CounterVec
	steps     prometheus.Counter
	refactors prometheus.Counter
	duration  prometheus.Histogram
	active    prometheus.Gauge
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		started: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jjsim_runs_started_total",
			Help: "Transient runs started by analysis mode",
		}, []string{"mode"}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jjsim_runs_finished_total",
			Help: "Transient runs finished by outcome",
		}, []string{"result"}),
		steps: f.NewCounter(prometheus.CounterOpts{
			Name: "jjsim_steps_total",
			Help: "Simulated time steps",
		}),
		refactors: f.NewCounter(prometheus.CounterOpts{
			Name: "jjsim_refactors_total",
			Help: "Numeric refactorizations after junction region changes",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jjsim_run_duration_seconds",
			Help:    "Wall time per transient run",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "jjsim_active_runs",
			Help: "Runs in progress",
		}),
	}
}

func (r *Recorder) RunStarted(mode string) {
	r.active.Inc()
	r.started.WithLabelValues(mode).Inc()
}

func (r *Recorder) StepsDone(n int) { r.steps.Add(float64(n)) }

func (r *Recorder) Refactored() { r.refactors.Inc() }

func (r *Recorder) RunFinished(d time.Duration, err error) {
	r.active.Dec()
	r.duration.Observe(d.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.finished.WithLabelValues(result).Inc()
}

// WriteTextfile dumps the gathered metrics in the node_exporter textfile
// format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
