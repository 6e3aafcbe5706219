package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles       *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	winProb      *prometheus.GaugeVec
	verdicts     *prometheus.CounterVec
	judgeScore   prometheus.Histogram
	judgeAttempt *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	published    *prometheus.CounterVec
	pubBytes     *prometheus.CounterVec
	pubLatency   *prometheus.HistogramVec
}

// New registers the pipeline collectors on reg. A nil reg uses the default
// registerer so /metrics picks them up.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_cycles_total",
				Help: "Orchestrator cycles by outcome",
			},
			[]string{"outcome"},
		),
		stageLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_stage_duration_seconds",
				Help:    "Duration of orchestrator stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		winProb: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_win_probability_percent",
				Help: "Last simulated take-profit probability",
			},
			[]string{"symbol"},
		),
		verdicts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_verdicts_total",
				Help: "Judgment verdicts by decision",
			},
			[]string{"decision"},
		),
		judgeScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aegis_verdict_score",
				Help:    "Distribution of judgment scores",
				Buckets: prometheus.LinearBuckets(1, 1, 15),
			},
		),
		judgeAttempt: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_judge_attempts_total",
				Help: "Judgment service attempts by result",
			},
			[]string{"result"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_cache_lookups_total",
				Help: "Snapshot cache lookups by namespace and result",
			},
			[]string{"kind", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "aegis_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		published: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_decision_events_published_total",
				Help: "Decision events written to Kafka by result",
			},
			[]string{"topic", "result"},
		),
		pubBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_decision_event_bytes_total",
				Help: "Encoded decision event bytes written to Kafka",
			},
			[]string{"topic"},
		),
		pubLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_decision_publish_seconds",
				Help:    "Kafka publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
	}
}

func (r *Recorder) RecordCycle(outcome string) {
	r.cycles.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordWinProbability(symbol string, pct float64) {
	r.winProb.WithLabelValues(symbol).Set(pct)
}

// RecordVerdict counts the decision and observes the score.
func (r *Recorder) RecordVerdict(decision string, score int) {
	r.verdicts.WithLabelValues(decision).Inc()
	r.judgeScore.Observe(float64(score))
}

func (r *Recorder) RecordJudgeAttempt(result string) {
	r.judgeAttempt.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordCacheLookup(kind string, hit bool) {
	r.cacheLookups.WithLabelValues(kind, strconv.FormatBool(hit)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordPublish(topic string, ok bool, bytes int, seconds float64) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.published.WithLabelValues(topic, result).Inc()
	if ok {
		r.pubBytes.WithLabelValues(topic).Add(float64(bytes))
	}
	r.pubLatency.WithLabelValues(topic).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordCycle(string)                   {}
func (Nop) RecordStage(string, float64)          {}
func (Nop) RecordWinProbability(string, float64) {}
func (Nop) RecordVerdict(string, int)            {}
func (Nop) RecordJudgeAttempt(string)            {}
func (Nop) RecordCacheLookup(string, bool)       {}
func (Nop) RecordError(string)                   {}
func (Nop) RecordLastPrice(string, float64)      {}

func (Nop) RecordPublish(string, bool, int, float64) {}
