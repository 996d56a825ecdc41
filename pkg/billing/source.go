package billing

import (
	"context"
	"time"
)

const (
	// CurrencyDimension is the dimension AWS publishes billing metrics under.
	CurrencyDimension = "Currency"
)

// Metric identifies a CloudWatch series.
type Metric struct {
	Namespace  string
	Name       string
	Dimensions map[string]string
}

//go:generate mockgen -destination=mock/metric_source.go -package=mock github.com/operator-framework/daily-billing/pkg/billing MetricSource

// MetricSource reads and writes metric series.
type MetricSource interface {
	// GetDatapoints returns the datapoints of metric between start and end,
	// sorted descending by timestamp.
	GetDatapoints(ctx context.Context, metric Metric, start, end time.Time) ([]Datapoint, error)

	// PutValues publishes every value in a single request, so either all of
	// them are stored or none is.
	PutValues(ctx context.Context, metric Metric, values []Datapoint) error
}
