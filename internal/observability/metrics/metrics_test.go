package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestEngineMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEngineMetrics(reg)

	m.ObserveTransition("IN_THEATER", "applied")
	m.ObserveTransition("IN_THEATER", "gate_rejected")
	m.ObserveGateRejection("SIGN_IN")
	m.ObserveChecklistCompletion("SIGN_IN")
	m.ObserveTimelineUpdate("rejected")
	m.ObserveAuditWriteFailure()
	m.ObserveBoardBuild(0.02)

	assert.Equal(t, 1.0, counterValue(t, reg, "surgicalops_engine_transitions_total",
		map[string]string{"action": "IN_THEATER", "outcome": "applied"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "surgicalops_engine_transitions_total",
		map[string]string{"action": "IN_THEATER", "outcome": "gate_rejected"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "surgicalops_engine_gate_rejections_total",
		map[string]string{"gate": "SIGN_IN"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "surgicalops_engine_checklist_completions_total",
		map[string]string{"phase": "SIGN_IN"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "surgicalops_engine_timeline_updates_total",
		map[string]string{"outcome": "rejected"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "surgicalops_engine_audit_write_failures_total", nil))
}

func TestEngineMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveTransition("IN_PREP", "applied")
	m.ObserveGateRejection("SIGN_OUT")
	m.ObserveChecklistCompletion("TIME_OUT")
	m.ObserveTimelineUpdate("applied")
	m.ObserveAuditWriteFailure()
	m.ObserveBoardBuild(0.1)
}
