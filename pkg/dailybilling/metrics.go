package dailybilling

import (
	"github.com/prometheus/client_golang/prometheus"
)

const prometheusMetricNamespace = "daily_billing"

var (
	runsTotalCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "runs_total",
			Help:      "Number of daily billing runs started.",
		},
	)

	runsFailedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "runs_failed_total",
			Help:      "Number of daily billing runs that failed, by the step that failed.",
		},
		[]string{"reason"},
	)

	runDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a daily billing run.",
			Buckets:   []float64{0.5, 1.0, 5.0, 15.0, 60.0},
		},
	)

	engineOutcomesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "engine_outcomes_total",
			Help:      "Number of folds by outcome.",
		},
		[]string{"outcome"},
	)

	publishedDailyChargeGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "published_daily_charge",
			Help:      "Last Daily Charge value published, by day.",
		},
		[]string{"day"},
	)

	checkpointTimestampGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "checkpoint_timestamp_seconds",
			Help:      "Unix timestamp of the last persisted checkpoint.",
		},
	)
)

func init() {
	prometheus.MustRegister(runsTotalCounter)
	prometheus.MustRegister(runsFailedCounter)
	prometheus.MustRegister(runDurationHistogram)
	prometheus.MustRegister(engineOutcomesCounter)
	prometheus.MustRegister(publishedDailyChargeGauge)
	prometheus.MustRegister(checkpointTimestampGauge)
}

const (
	failureReasonCheckpointLoad = "checkpoint_load"
	failureReasonCheckpointSave = "checkpoint_save"
	failureReasonFetch          = "fetch"
	failureReasonEngine         = "engine"
	failureReasonPublish        = "publish"
)
