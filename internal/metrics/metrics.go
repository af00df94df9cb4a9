// Package metrics records counters for one analysis run and exports them in
// the Prometheus text format, for pickup by a node exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/huangsam/buildwatch/schema"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "buildwatch"

// Recorder holds the collectors of a run.
type Recorder struct {
	registry *prometheus.Registry

	logLines     prometheus.Counter
	logEvents    prometheus.Counter
	nearMisses   prometheus.Counter
	reposTracked prometheus.Gauge
	reposChanged prometheus.Gauge
	reposFailing prometheus.Gauge
	sampled      *prometheus.CounterVec
	reportRows   *prometheus.CounterVec
	repoWarnings *prometheus.CounterVec
	lastRun      prometheus.Gauge
	runDuration  prometheus.Gauge
}

// NewRecorder creates a Recorder registered on registry. A nil registry gets a fresh one.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	r := &Recorder{
		registry: registry,
		logLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "log", Name: "lines_total",
			Help: "Lines read from the compilation log.",
		}),
		logEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "log", Name: "compile_events_total",
			Help: "Compile summary lines matched in the log.",
		}),
		nearMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "log", Name: "near_misses_total",
			Help: "Lines that mention Makefiles but did not match the summary format.",
		}),
		reposTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "repos_tracked",
			Help: "Repositories with at least one compile event.",
		}),
		reposChanged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "repos_changed",
			Help: "Repositories whose outcomes changed between runs.",
		}),
		reposFailing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "repos_failing",
			Help: "Repositories whose latest run left a Makefile without full success.",
		}),
		sampled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sample", Name: "repos_total",
			Help: "Sampled repositories by outcome.",
		}, []string{"outcome"}),
		reportRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "report", Name: "rows_total",
			Help: "Report rows by status.",
		}, []string{"status"}),
		repoWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "report", Name: "repo_warnings_total",
			Help: "Repositories reported with a recoverable error, by stage.",
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the run finished.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help: "Wall time of the run.",
		}),
	}
	registry.MustRegister(
		r.logLines, r.logEvents, r.nearMisses,
		r.reposTracked, r.reposChanged, r.reposFailing,
		r.sampled, r.reportRows, r.repoWarnings,
		r.lastRun, r.runDuration,
	)
	return r
}

// ObserveParse records the outcome of reading a log.
func (r *Recorder) ObserveParse(stats schema.ParseStats, repos int) {
	r.logLines.Add(float64(stats.Lines))
	r.logEvents.Add(float64(stats.Matched))
	r.nearMisses.Add(float64(stats.NearMisses))
	r.reposTracked.Set(float64(repos))
}

// ObserveChanged records how many repositories fluctuated.
func (r *Recorder) ObserveChanged(n int) {
	r.reposChanged.Set(float64(n))
}

// ObserveSample records the failing population and the draw.
func (r *Recorder) ObserveSample(result schema.SampleResult) {
	r.reposFailing.Set(float64(result.Population))
	r.sampled.WithLabelValues("kept").Add(float64(len(result.Kept)))
	r.sampled.WithLabelValues("skipped").Add(float64(len(result.Skipped)))
}

// ObserveReport records report rows by status.
func (r *Recorder) ObserveReport(rows []schema.ReportRow) {
	for _, row := range rows {
		if row.Status == schema.FailedStatus {
			r.reportRows.WithLabelValues("failed").Inc()
		} else {
			r.reportRows.WithLabelValues("ok").Inc()
		}
	}
}

// ObserveWarning counts a repository skipped or degraded at stage.
func (r *Recorder) ObserveWarning(stage string) {
	r.repoWarnings.WithLabelValues(stage).Inc()
}

// ObserveRun records the end of the run.
func (r *Recorder) ObserveRun(finished time.Time, duration time.Duration) {
	r.lastRun.Set(float64(finished.Unix()))
	r.runDuration.Set(duration.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every collected metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
