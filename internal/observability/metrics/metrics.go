package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics exposes counters/histograms for the surgical workflow engine.
type EngineMetrics struct {
	transitionsTotal     *prometheus.CounterVec
	gateRejectionsTotal  *prometheus.CounterVec
	checklistCompletions *prometheus.CounterVec
	timelineUpdatesTotal *prometheus.CounterVec
	auditWriteFailures   prometheus.Counter
	boardBuildSeconds    prometheus.Histogram
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surgicalops",
			Subsystem: "engine",
			Name:      "transitions_total",
			Help:      "Total case transition attempts by action and outcome",
		}, []string{"action", "outcome"}),
		gateRejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surgicalops",
			Subsystem: "engine",
			Name:      "gate_rejections_total",
			Help:      "Total transitions blocked by a checklist gate",
		}, []string{"gate"}),
		checklistCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surgicalops",
			Subsystem: "engine",
			Name:      "checklist_completions_total",
			Help:      "Total checklist phase completion calls",
		}, []string{"phase"}),
		timelineUpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surgicalops",
			Subsystem: "engine",
			Name:      "timeline_updates_total",
			Help:      "Total timeline patch attempts by outcome",
		}, []string{"outcome"}),
		auditWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surgicalops",
			Subsystem: "engine",
			Name:      "audit_write_failures_total",
			Help:      "Audit events dropped because the sink write failed",
		}),
		boardBuildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "surgicalops",
			Subsystem: "board",
			Name:      "build_seconds",
			Help:      "Latency of day board aggregation",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.transitionsTotal,
		m.gateRejectionsTotal,
		m.checklistCompletions,
		m.timelineUpdatesTotal,
		m.auditWriteFailures,
		m.boardBuildSeconds,
	)
	return m
}

func (m *EngineMetrics) ObserveTransition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(action, outcome).Inc()
}

func (m *EngineMetrics) ObserveGateRejection(gate string) {
	if m == nil {
		return
	}
	m.gateRejectionsTotal.WithLabelValues(gate).Inc()
}

func (m *EngineMetrics) ObserveChecklistCompletion(phase string) {
	if m == nil {
		return
	}
	m.checklistCompletions.WithLabelValues(phase).Inc()
}

func (m *EngineMetrics) ObserveTimelineUpdate(outcome string) {
	if m == nil {
		return
	}
	m.timelineUpdatesTotal.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) ObserveAuditWriteFailure() {
	if m == nil {
		return
	}
	m.auditWriteFailures.Inc()
}

func (m *EngineMetrics) ObserveBoardBuild(seconds float64) {
	if m == nil {
		return
	}
	m.boardBuildSeconds.Observe(seconds)
}
