package awstest

import (
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
)

func NewMockCloudWatch() *MockCloudWatch {
	return &MockCloudWatch{
		Datapoints: map[string][]*cloudwatch.Datapoint{},
	}
}

// MockCloudWatch answers GetMetricStatistics from canned datapoints and
// records every PutMetricData call. Accepted puts are stored as Maximum
// datapoints, so later reads observe them.
type MockCloudWatch struct {
	sync.Mutex
	cloudwatchiface.CloudWatchAPI

	// Datapoints are keyed by namespace and metric name, see Key.
	Datapoints map[string][]*cloudwatch.Datapoint
	GetInputs  []*cloudwatch.GetMetricStatisticsInput
	PutInputs  []*cloudwatch.PutMetricDataInput

	GetErr error
	PutErr error
	// RejectPut, when set, is consulted for every PutMetricData request and
	// rejects the whole request if it returns an error.
	RejectPut func(in *cloudwatch.PutMetricDataInput) error
}

// Key returns the Datapoints key for a metric.
func Key(namespace, name string) string {
	return namespace + "/" + name
}

func (m *MockCloudWatch) GetMetricStatisticsWithContext(_ aws.Context, in *cloudwatch.GetMetricStatisticsInput, _ ...request.Option) (*cloudwatch.GetMetricStatisticsOutput, error) {
	m.Lock()
	defer m.Unlock()
	m.GetInputs = append(m.GetInputs, in)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if in.Namespace == nil || in.MetricName == nil || in.StartTime == nil || in.EndTime == nil {
		return nil, errors.New("namespace, metric name, start and end time are required")
	}

	var out []*cloudwatch.Datapoint
	for _, dp := range m.Datapoints[Key(*in.Namespace, *in.MetricName)] {
		if dp.Timestamp != nil && (dp.Timestamp.Before(*in.StartTime) || !dp.Timestamp.Before(*in.EndTime)) {
			continue
		}
		out = append(out, dp)
	}
	return &cloudwatch.GetMetricStatisticsOutput{
		Label:      in.MetricName,
		Datapoints: out,
	}, nil
}

func (m *MockCloudWatch) PutMetricDataWithContext(_ aws.Context, in *cloudwatch.PutMetricDataInput, _ ...request.Option) (*cloudwatch.PutMetricDataOutput, error) {
	m.Lock()
	defer m.Unlock()
	m.PutInputs = append(m.PutInputs, in)
	if m.PutErr != nil {
		return nil, m.PutErr
	}
	if m.RejectPut != nil {
		if err := m.RejectPut(in); err != nil {
			return nil, err
		}
	}
	if in.Namespace == nil {
		return nil, errors.New("namespace is required")
	}
	for _, datum := range in.MetricData {
		if datum.MetricName == nil || datum.Timestamp == nil || datum.Value == nil {
			return nil, errors.New("metric name, timestamp and value are required")
		}
	}
	for _, datum := range in.MetricData {
		key := Key(*in.Namespace, *datum.MetricName)
		m.Datapoints[key] = append(m.Datapoints[key], Maximum(*datum.Timestamp, *datum.Value))
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Maximum builds a datapoint carrying only the Maximum statistic.
func Maximum(ts time.Time, value float64) *cloudwatch.Datapoint {
	return &cloudwatch.Datapoint{
		Timestamp: aws.Time(ts),
		Maximum:   aws.Float64(value),
		Unit:      aws.String(cloudwatch.StandardUnitNone),
	}
}
