// Package observability exposes season standings as Prometheus metrics,
// written to a node_exporter textfile after each simulated day.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/social"
)

const (
	namespace = "runstrict"
	subsystem = "season"
)

// Metrics holds the season collectors on their own registry, so a batch
// run can write a clean textfile without the process-wide defaults.
type Metrics struct {
	registry *prometheus.Registry

	teamCells   *prometheus.GaugeVec
	teamPoints  *prometheus.GaugeVec
	teamMembers *prometheus.GaugeVec
	dayRuns     prometheus.Gauge
	dayFlips    prometheus.Gauge
	dayPoints   prometheus.Gauge
	lastDay     prometheus.Gauge
	runsTotal   prometheus.Counter
	defections  *prometheus.CounterVec
}

// NewMetrics registers the season collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		teamCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "team_cells",
			Help:      "Cells currently owned by each team.",
		}, []string{"team"}),
		teamPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "team_points",
			Help:      "Cumulative season points of each team's current members.",
		}, []string{"team"}),
		teamMembers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "team_members",
			Help:      "Current roster size of each team.",
		}, []string{"team"}),
		dayRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "day_runs",
			Help:      "Runs synthesized on the most recent day.",
		}),
		dayFlips: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "day_flips",
			Help:      "Cell flips on the most recent day.",
		}),
		dayPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "day_points",
			Help:      "Points earned on the most recent day.",
		}),
		lastDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_day",
			Help:      "Last completed season day.",
		}),
		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Runs synthesized by this process.",
		}),
		defections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "defections_total",
			Help:      "Users moved to another team by this process.",
		}, []string{"team"}),
	}
	m.registry.MustRegister(m.teamCells, m.teamPoints, m.teamMembers,
		m.dayRuns, m.dayFlips, m.dayPoints, m.lastDay, m.runsTotal, m.defections)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records the state after report's day.
func (m *Metrics) Observe(st *engine.State, report *engine.DayReport) {
	sum := engine.Summarize(st, 0)
	for _, t := range social.Teams {
		ts := sum.Team(t)
		m.teamCells.WithLabelValues(string(t)).Set(float64(ts.Cells))
		m.teamPoints.WithLabelValues(string(t)).Set(float64(ts.Points))
		m.teamMembers.WithLabelValues(string(t)).Set(float64(ts.Members))
	}

	m.dayRuns.Set(float64(len(report.Runs)))
	m.dayFlips.Set(float64(report.TotalFlips()))
	m.dayPoints.Set(float64(report.TotalPoints()))
	m.lastDay.Set(float64(st.LastDay))
	m.runsTotal.Add(float64(len(report.Runs)))
	for _, u := range report.Defectors {
		m.defections.WithLabelValues(string(u.Team)).Inc()
	}
}

// WriteTextfile writes the current values to path in the text exposition
// format. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
