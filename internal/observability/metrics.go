package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a pipeline run.
type Metrics struct {
	registry      *prometheus.Registry
	LLMRequests   *prometheus.CounterVec
	LLMDuration   *prometheus.HistogramVec
	StageRuns     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	ChangeRecords *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with pipeline collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	llmReqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devgenius_llm_requests_total",
		Help: "Chat-completion requests by result kind and outcome",
	}, []string{"kind", "outcome"})

	llmDurs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devgenius_llm_request_duration_seconds",
		Help:    "Chat-completion request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	stageRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devgenius_stage_runs_total",
		Help: "Pipeline stage executions by stage and outcome",
	}, []string{"stage", "outcome"})

	stageDurs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devgenius_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
	}, []string{"stage"})

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "devgenius_change_records_total",
		Help: "Change records appended by agent",
	}, []string{"agent"})

	reg.MustRegister(llmReqs, llmDurs, stageRuns, stageDurs, records)

	return &Metrics{
		registry:      reg,
		LLMRequests:   llmReqs,
		LLMDuration:   llmDurs,
		StageRuns:     stageRuns,
		StageDuration: stageDurs,
		ChangeRecords: records,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordLLMRequest records one chat-completion call.
func (m *Metrics) RecordLLMRequest(kind, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	kind = orUnknown(kind)
	m.LLMRequests.WithLabelValues(kind, orUnknown(outcome)).Inc()
	m.LLMDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordStage records a finished pipeline stage.
func (m *Metrics) RecordStage(stage, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	stage = orUnknown(stage)
	m.StageRuns.WithLabelValues(stage, orUnknown(outcome)).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordChange increments the change record counter for an agent.
func (m *Metrics) RecordChange(agent string) {
	if m == nil {
		return
	}
	m.ChangeRecords.WithLabelValues(orUnknown(agent)).Inc()
}

// WriteTextfile persists the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
