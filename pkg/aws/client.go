package aws

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
)

const (
	// BillingRegion is the only region AWS publishes billing metrics in.
	BillingRegion = "us-east-1"

	// BillingNamespace and EstimatedChargesMetric name the cumulative
	// billing series.
	BillingNamespace       = "AWS/Billing"
	EstimatedChargesMetric = "EstimatedCharges"
)

// NewSession returns an AWS session for region, using the default
// credential chain.
func NewSession(region string) *session.Session {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	return session.Must(session.NewSession(cfg))
}

// NewCloudWatchSource returns a CloudWatchSource talking to CloudWatch in region.
func NewCloudWatchSource(region string, period int64) *CloudWatchSource {
	return NewCloudWatchSourceWithClient(cloudwatch.New(NewSession(region)), period)
}
