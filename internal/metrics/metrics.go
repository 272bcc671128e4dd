package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"

	"github.com/sawpanic/tradegate/internal/domain"
	"github.com/sawpanic/tradegate/internal/permission"
)

// Registry holds all Prometheus metrics for the permission engine.
type Registry struct {
	reg *prometheus.Registry

	EvaluationDuration *prometheus.HistogramVec
	EvaluationErrors   *prometheus.CounterVec
	AssessmentStates   *prometheus.CounterVec
	ConflictsDetected  *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	UncertaintyGauge   *prometheus.GaugeVec
	QualityScore       *prometheus.GaugeVec
	EligibleRatio      prometheus.Gauge
	ActiveAssets       prometheus.Gauge
}

// NewRegistry creates and registers all engine metrics on a private
// Prometheus registry.
func NewRegistry() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		EvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradegate_evaluation_duration_seconds",
				Help:    "Duration of one full permission evaluation",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"asset"},
		),
		EvaluationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_evaluation_errors_total",
				Help: "Evaluations aborted before producing an assessment",
			},
			[]string{"asset", "stage"},
		),
		AssessmentStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_assessments_total",
				Help: "Assessments produced by resulting permission state",
			},
			[]string{"asset", "state"},
		),
		ConflictsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_conflicts_total",
				Help: "Layer conflicts detected by type and severity",
			},
			[]string{"type", "severity"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradegate_state_transitions_total",
				Help: "Permission state transitions by kind",
			},
			[]string{"asset", "kind"},
		),
		UncertaintyGauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradegate_uncertainty_level",
				Help: "Current uncertainty per asset (1=LOW .. 4=CRITICAL)",
			},
			[]string{"asset"},
		),
		QualityScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradegate_snapshot_quality_score",
				Help: "Freshness-weighted snapshot quality per asset (0..1)",
			},
			[]string{"asset"},
		),
		EligibleRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradegate_eligible_ratio",
				Help: "Share of produced assessments whose state permits positioning",
			},
		),
		ActiveAssets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradegate_active_assets",
				Help: "Number of assets on the evaluation schedule",
			},
		),
	}

	m.reg.MustRegister(
		m.EvaluationDuration,
		m.EvaluationErrors,
		m.AssessmentStates,
		m.ConflictsDetected,
		m.Transitions,
		m.UncertaintyGauge,
		m.QualityScore,
		m.EligibleRatio,
		m.ActiveAssets,
	)
	return m
}

var uncertaintyValues = map[domain.UncertaintyLevel]float64{
	domain.UncertaintyLow:      1,
	domain.UncertaintyModerate: 2,
	domain.UncertaintyHigh:     3,
	domain.UncertaintyCritical: 4,
}

// ObserveAssessment records everything one finished assessment implies.
func (m *Registry) ObserveAssessment(a *permission.Assessment, took time.Duration) {
	m.EvaluationDuration.WithLabelValues(a.Asset).Observe(took.Seconds())
	m.AssessmentStates.WithLabelValues(a.Asset, string(a.State)).Inc()
	m.UncertaintyGauge.WithLabelValues(a.Asset).Set(uncertaintyValues[a.Uncertainty])
	m.QualityScore.WithLabelValues(a.Asset).Set(a.Quality.OverallScore)
	for _, c := range a.Conflicts {
		m.ConflictsDetected.WithLabelValues(string(c.Type), string(c.Severity)).Inc()
	}
	m.updateEligibleRatio()
}

// ObserveError records an evaluation that failed at the named stage.
func (m *Registry) ObserveError(asset, stage string) {
	m.EvaluationErrors.WithLabelValues(asset, stage).Inc()
}

// ObserveTransition records a classified state change.
func (m *Registry) ObserveTransition(asset string, kind domain.TransitionKind) {
	m.Transitions.WithLabelValues(asset, string(kind)).Inc()
}

var eligibleStates = map[string]bool{
	string(domain.TradeAllowed):            true,
	string(domain.TradeAllowedReducedRisk): true,
	string(domain.ScalpOnly):               true,
}

// updateEligibleRatio recomputes the eligible share from the state
// counters, summed over every (asset, state) label pair.
func (m *Registry) updateEligibleRatio() {
	families, err := m.reg.Gather()
	if err != nil {
		return
	}
	var eligible, total float64
	for _, mf := range families {
		if mf.GetName() != "tradegate_assessments_total" {
			continue
		}
		for _, pb := range mf.GetMetric() {
			count := pb.GetCounter().GetValue()
			total += count
			if eligibleLabels(pb.GetLabel()) {
				eligible += count
			}
		}
	}
	if total > 0 {
		m.EligibleRatio.Set(eligible / total)
	}
}

func eligibleLabels(labels []*io_prometheus_client.LabelPair) bool {
	for _, lp := range labels {
		if lp.GetName() == "state" {
			return eligibleStates[lp.GetValue()]
		}
	}
	return false
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (m *Registry) Gatherer() prometheus.Gatherer {
	return m.reg
}
