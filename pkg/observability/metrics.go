package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/gantry/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records run outcomes as Prometheus metrics.
type Metrics struct {
	SlotTransitions *prometheus.CounterVec
	GateChecks      *prometheus.CounterVec
	Pipelines       *prometheus.CounterVec
	StatusChanges   *prometheus.CounterVec
	SlotDuration    *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

var _ domain.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SlotTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_slot_transitions_total",
				Help: "Slot transitions observed, by resulting status",
			},
			[]string{"status"},
		),
		GateChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_gate_checks_total",
				Help: "Gate evaluations, by phase and outcome",
			},
			[]string{"phase", "result"},
		),
		Pipelines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_pipelines_total",
				Help: "Pipeline runs, by lifecycle outcome",
			},
			[]string{"outcome"},
		),
		StatusChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gantry_status_changes_total",
				Help: "Pipeline status changes",
			},
			[]string{"from", "to"},
		),
		SlotDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gantry_slot_duration_seconds",
				Help:    "Time between a slot starting and finishing",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
			[]string{"status"},
		),
		started: make(map[string]time.Time),
	}

	for _, c := range []prometheus.Collector{m.SlotTransitions, m.GateChecks, m.Pipelines, m.StatusChanges, m.SlotDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) OnPipelineStarted(ctx context.Context, e *domain.PipelineEvent) error {
	m.Pipelines.WithLabelValues("started").Inc()
	return nil
}

func (m *Metrics) OnPipelineCompleted(ctx context.Context, e *domain.PipelineEvent) error {
	m.Pipelines.WithLabelValues("completed").Inc()
	return nil
}

func (m *Metrics) OnPipelineFailed(ctx context.Context, e *domain.PipelineEvent) error {
	m.Pipelines.WithLabelValues("failed").Inc()
	return nil
}

func (m *Metrics) OnSlotStarted(ctx context.Context, e *domain.SlotEvent) error {
	m.SlotTransitions.WithLabelValues(string(domain.SlotInProgress)).Inc()
	m.mu.Lock()
	m.started[e.PipelineID+"/"+e.SlotID] = e.Timestamp
	m.mu.Unlock()
	return nil
}

func (m *Metrics) OnSlotCompleted(ctx context.Context, e *domain.SlotEvent) error {
	m.finishSlot(e, domain.SlotCompleted)
	return nil
}

func (m *Metrics) OnSlotFailed(ctx context.Context, e *domain.SlotEvent) error {
	m.finishSlot(e, domain.SlotFailed)
	return nil
}

func (m *Metrics) OnGateCheckCompleted(ctx context.Context, e *domain.GateEvent) error {
	m.GateChecks.WithLabelValues(string(e.Phase), strconv.FormatBool(e.Passed())).Inc()
	return nil
}

func (m *Metrics) OnStatusChanged(ctx context.Context, e *domain.StatusEvent) error {
	m.StatusChanges.WithLabelValues(string(e.Old), string(e.New)).Inc()
	return nil
}

// finishSlot observes the slot's duration when its start was seen.
func (m *Metrics) finishSlot(e *domain.SlotEvent, status domain.SlotStatus) {
	m.SlotTransitions.WithLabelValues(string(status)).Inc()

	key := e.PipelineID + "/" + e.SlotID
	m.mu.Lock()
	start, ok := m.started[key]
	delete(m.started, key)
	m.mu.Unlock()

	if ok {
		m.SlotDuration.WithLabelValues(string(status)).Observe(e.Timestamp.Sub(start).Seconds())
	}
}
