package mirror

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// lastMirrorTimestamp is a Gauge that captures the timestamp of the
	// last successful mirror run
	lastMirrorTimestamp *prometheus.GaugeVec
	// mirrorCount is a Counter vector of mirror runs
	mirrorCount *prometheus.CounterVec
	// mirrorLatency is a Histogram vector that keeps track of mirror
	// run durations
	mirrorLatency *prometheus.HistogramVec
)

// EnableMetrics will enable metrics collection for mirror runs.
// Available metrics are...
//   - git_push_mirror_last_success_timestamp - (tags: repo)
//     A Gauge that captures the timestamp of the last successful run per repo.
//   - git_push_mirror_count - (tags: repo,success)
//     A Counter incremented with each run and tagged with the result (success=true|false)
//   - git_push_mirror_latency_seconds - (tags: repo)
//     A Histogram that keeps track of the run latency per repo.
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	lastMirrorTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "git_push_mirror_last_success_timestamp",
		Help:      "Timestamp of the last successful mirror run",
	},
		[]string{
			// name of the source repository
			"repo",
		},
	)

	mirrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "git_push_mirror_count",
		Help:      "Count of mirror runs",
	},
		[]string{
			// name of the source repository
			"repo",
			// whether the run was successful or not
			"success",
		},
	)

	mirrorLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "git_push_mirror_latency_seconds",
		Help:      "Latency of mirror runs",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	},
		[]string{
			// name of the source repository
			"repo",
		},
	)

	registerer.MustRegister(
		lastMirrorTimestamp,
		mirrorCount,
		mirrorLatency,
	)
}

// recordMirror records a mirror run attempt by updating all the relevant
// metrics
func recordMirror(repo string, success bool) {
	// if metrics not enabled return
	if lastMirrorTimestamp == nil || mirrorCount == nil {
		return
	}
	if success {
		lastMirrorTimestamp.With(prometheus.Labels{
			"repo": repo,
		}).Set(float64(time.Now().Unix()))
	}
	mirrorCount.With(prometheus.Labels{
		"repo":    repo,
		"success": strconv.FormatBool(success),
	}).Inc()
}

func updateMirrorLatency(repo string, start time.Time) {
	// if metrics not enabled return
	if mirrorLatency == nil {
		return
	}
	mirrorLatency.WithLabelValues(repo).Observe(time.Since(start).Seconds())
}
