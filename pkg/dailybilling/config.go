package dailybilling

import (
	"errors"
	"fmt"
	"time"

	"github.com/operator-framework/daily-billing/pkg/aws"
	"github.com/operator-framework/daily-billing/pkg/billing"
	"github.com/operator-framework/daily-billing/pkg/checkpoint"
)

const (
	DefaultRegion          = aws.BillingRegion
	DefaultBucket          = "fb-lambda-storage"
	DefaultFolder          = "daily-billing"
	DefaultTarget          = "daily-billing"
	DefaultCurrency        = "USD"
	DefaultDailyNamespace  = "DailyBilling"
	DefaultDailyMetricName = "Daily Charge"
	DefaultPeriod          = 5 * time.Minute
	DefaultTimezone        = "UTC"
	DefaultSchedule        = "@hourly"
	DefaultListenAddr      = ":8080"
)

// Config is built once at process start and handed to the Runner.
type Config struct {
	// Region is the AWS region used for CloudWatch and S3.
	Region string
	// Bucket and Folder locate checkpoints in S3.
	Bucket string
	Folder string
	// Target names the invocation target; the checkpoint is stored at
	// <Folder>/<Target>.json.
	Target string
	// CheckpointStoreURL overrides the S3 bucket, see checkpoint.NewStore.
	CheckpointStoreURL string

	SourceNamespace  string
	SourceMetricName string
	Currency         string
	DailyNamespace   string
	DailyMetricName  string

	// Period is the CloudWatch aggregation period used for reads.
	Period time.Duration
	// Timezone decides where calendar days start.
	Timezone string

	// Schedule and ListenAddr are only used by the long running server.
	Schedule   string
	ListenAddr string
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		Region:           DefaultRegion,
		Bucket:           DefaultBucket,
		Folder:           DefaultFolder,
		Target:           DefaultTarget,
		SourceNamespace:  aws.BillingNamespace,
		SourceMetricName: aws.EstimatedChargesMetric,
		Currency:         DefaultCurrency,
		DailyNamespace:   DefaultDailyNamespace,
		DailyMetricName:  DefaultDailyMetricName,
		Period:           DefaultPeriod,
		Timezone:         DefaultTimezone,
		Schedule:         DefaultSchedule,
		ListenAddr:       DefaultListenAddr,
	}
}

// Validate checks the fields every mode needs.
func (cfg Config) Validate() error {
	if cfg.CheckpointStoreURL == "" && cfg.Bucket == "" {
		return errors.New("a bucket or checkpoint store URL is required")
	}
	if cfg.Target == "" {
		return errors.New("target cannot be empty")
	}
	if cfg.SourceNamespace == "" || cfg.SourceMetricName == "" {
		return errors.New("source namespace and metric name cannot be empty")
	}
	if cfg.DailyNamespace == "" || cfg.DailyMetricName == "" {
		return errors.New("daily namespace and metric name cannot be empty")
	}
	if cfg.Currency == "" {
		return errors.New("currency cannot be empty")
	}
	if cfg.Period <= 0 || cfg.Period%time.Minute != 0 {
		return fmt.Errorf("period must be a positive multiple of 60s, got %v", cfg.Period)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (cfg Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %v", cfg.Timezone, err)
	}
	return loc, nil
}

// CheckpointKey is the object key of this target's checkpoint.
func (cfg Config) CheckpointKey() string {
	return checkpoint.Key(cfg.Folder, cfg.Target)
}

// SourceMetric is the cumulative series folded into daily totals.
func (cfg Config) SourceMetric() billing.Metric {
	return billing.Metric{
		Namespace:  cfg.SourceNamespace,
		Name:       cfg.SourceMetricName,
		Dimensions: map[string]string{billing.CurrencyDimension: cfg.Currency},
	}
}

// DailyMetric is the derived per-day series.
func (cfg Config) DailyMetric() billing.Metric {
	return billing.Metric{
		Namespace:  cfg.DailyNamespace,
		Name:       cfg.DailyMetricName,
		Dimensions: map[string]string{billing.CurrencyDimension: cfg.Currency},
	}
}
