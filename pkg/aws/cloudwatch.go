package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/shopspring/decimal"

	"github.com/operator-framework/daily-billing/pkg/billing"
)

var (
	// ErrMalformedDatapoint is returned when CloudWatch answers with a
	// datapoint lacking its timestamp or Maximum statistic.
	ErrMalformedDatapoint = errors.New("malformed CloudWatch datapoint")

	// ErrPublishRejected is returned when CloudWatch does not accept a
	// metric value.
	ErrPublishRejected = errors.New("metric value rejected by CloudWatch")
)

// CloudWatchSource is a billing.MetricSource backed by CloudWatch. Series
// are read with the Maximum statistic, which for a cumulative metric is the
// latest reading within each period.
type CloudWatchSource struct {
	cw cloudwatchiface.CloudWatchAPI
	// period is the aggregation period in seconds.
	period int64
}

var _ billing.MetricSource = &CloudWatchSource{}

// maxMetricDataPerRequest is the PutMetricData limit on MetricData entries.
const maxMetricDataPerRequest = 20

func NewCloudWatchSourceWithClient(client cloudwatchiface.CloudWatchAPI, period int64) *CloudWatchSource {
	return &CloudWatchSource{
		cw:     client,
		period: period,
	}
}

func (s *CloudWatchSource) GetDatapoints(ctx context.Context, metric billing.Metric, start, end time.Time) ([]billing.Datapoint, error) {
	out, err := s.cw.GetMetricStatisticsWithContext(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String(metric.Namespace),
		MetricName: aws.String(metric.Name),
		Dimensions: dimensions(metric.Dimensions),
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int64(s.period),
		Statistics: aws.StringSlice([]string{cloudwatch.StatisticMaximum}),
	})
	if err != nil {
		return nil, fmt.Errorf("could not get statistics for %s/%s from %v to %v: %v",
			metric.Namespace, metric.Name, start, end, err)
	}

	points := make([]billing.Datapoint, 0, len(out.Datapoints))
	for i, dp := range out.Datapoints {
		if dp == nil || dp.Timestamp == nil {
			return nil, fmt.Errorf("%w: datapoint %d of %s/%s has no timestamp", ErrMalformedDatapoint, i, metric.Namespace, metric.Name)
		}
		if dp.Maximum == nil {
			return nil, fmt.Errorf("%w: datapoint %d of %s/%s at %v has no Maximum", ErrMalformedDatapoint, i, metric.Namespace, metric.Name, *dp.Timestamp)
		}
		points = append(points, billing.NewDatapoint(*dp.Timestamp, decimal.NewFromFloat(*dp.Maximum)))
	}

	return billing.SortDescending(points), nil
}

// PutValues sends all values as the MetricData of one PutMetricData request.
func (s *CloudWatchSource) PutValues(ctx context.Context, metric billing.Metric, values []billing.Datapoint) error {
	if len(values) == 0 {
		return nil
	}
	if len(values) > maxMetricDataPerRequest {
		return fmt.Errorf("%w: %d values exceed the %d allowed in one request", ErrPublishRejected, len(values), maxMetricDataPerRequest)
	}

	dims := dimensions(metric.Dimensions)
	data := make([]*cloudwatch.MetricDatum, 0, len(values))
	for _, v := range values {
		f, _ := v.Sum.Float64()
		data = append(data, &cloudwatch.MetricDatum{
			MetricName: aws.String(metric.Name),
			Dimensions: dims,
			Timestamp:  aws.Time(v.Timestamp),
			Value:      aws.Float64(f),
			Unit:       aws.String(cloudwatch.StandardUnitNone),
		})
	}

	_, err := s.cw.PutMetricDataWithContext(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(metric.Namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("%w: %s/%s %v: %v", ErrPublishRejected, metric.Namespace, metric.Name, values, err)
	}
	return nil
}

// dimensions converts a dimension map into CloudWatch dimensions, ordered by
// name so requests are deterministic.
func dimensions(dims map[string]string) []*cloudwatch.Dimension {
	if len(dims) == 0 {
		return nil
	}
	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*cloudwatch.Dimension, 0, len(names))
	for _, name := range names {
		out = append(out, &cloudwatch.Dimension{
			Name:  aws.String(name),
			Value: aws.String(dims[name]),
		})
	}
	return out
}
