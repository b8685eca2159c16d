// Package metrics exports Prometheus metrics for video processing jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ai-teammate/video-processing-service/internal/pipeline"
)

// Recorder implements pipeline.Observer.
type Recorder struct {
	jobs          *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	cleanupErrors prometheus.Counter
}

var _ pipeline.Observer = (*Recorder)(nil)

// New registers the job metrics with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		jobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "video_jobs_total",
			Help: "Jobs finished, by outcome (completed or the failing stage).",
		}, []string{"outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "video_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage", "result"}),
		cleanupErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "video_cleanup_failures_total",
			Help: "Jobs whose staged files could not all be removed.",
		}),
	}
}

// StageFinished records the stage duration.
func (r *Recorder) StageFinished(stage pipeline.Stage, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if stage == pipeline.StageCleaningUp {
			r.cleanupErrors.Inc()
		}
	}
	r.stageDuration.WithLabelValues(string(stage), result).Observe(elapsed.Seconds())
}

// JobFinished counts the job under its final stage.
func (r *Recorder) JobFinished(stage pipeline.Stage, _ error) {
	r.jobs.WithLabelValues(string(stage)).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
