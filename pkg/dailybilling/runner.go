package dailybilling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/daily-billing/pkg/aws"
	"github.com/operator-framework/daily-billing/pkg/billing"
	"github.com/operator-framework/daily-billing/pkg/checkpoint"
)

// RunResult describes what a run published.
type RunResult struct {
	Outcome            billing.Outcome  `json:"outcome"`
	Start              time.Time        `json:"start"`
	End                time.Time        `json:"end"`
	CurrentDifference  decimal.Decimal  `json:"currentDifference"`
	YesterdaysUpdate   decimal.Decimal  `json:"yesterdaysUpdate"`
	TodayTotal         decimal.Decimal  `json:"todayTotal"`
	YesterdayTotal     *decimal.Decimal `json:"yesterdayTotal,omitempty"`
	PreviousCheckpoint string           `json:"previousCheckpoint"`
	Checkpoint         string           `json:"checkpoint"`
	CheckpointSaved    bool             `json:"checkpointSaved"`
}

// Runner performs one fold of the cumulative billing series into the Daily
// Charge metric per call to Run.
type Runner struct {
	logger log.FieldLogger
	cfg    Config
	loc    *time.Location
	source billing.MetricSource
	store  checkpoint.Store
	now    func() time.Time
}

// New returns a Runner talking to CloudWatch and the checkpoint store
// described by cfg.
func New(logger log.FieldLogger, cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := checkpoint.NewStore(cfg.CheckpointStoreURL, cfg.Bucket, cfg.Region)
	if err != nil {
		return nil, err
	}
	source := aws.NewCloudWatchSource(cfg.Region, int64(cfg.Period/time.Second))
	return NewRunner(logger, cfg, source, store)
}

// NewRunner returns a Runner using the given collaborators.
func NewRunner(logger log.FieldLogger, cfg Config, source billing.MetricSource, store checkpoint.Store) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Runner{
		logger: logger.WithField("component", "runner"),
		cfg:    cfg,
		loc:    loc,
		source: source,
		store:  store,
		now:    time.Now,
	}, nil
}

// Run folds every datapoint newer than the stored checkpoint, publishes the
// resulting Daily Charge values and then persists the new checkpoint. Any
// failure ends the run; the checkpoint is only written once every publish
// succeeded.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	runsTotalCounter.Inc()
	started := time.Now()
	result, reason, err := r.run(ctx)
	runDurationHistogram.Observe(time.Since(started).Seconds())
	if err != nil {
		runsFailedCounter.WithLabelValues(reason).Inc()
		return result, err
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context) (*RunResult, string, error) {
	now := r.now().In(r.loc).Truncate(time.Second)
	todayStart := billing.StartOfDay(now)
	start := billing.StartOfPreviousDay(now)
	key := r.cfg.CheckpointKey()

	logger := r.logger.WithFields(log.Fields{
		"start":         start.Format(time.RFC3339),
		"end":           now.Format(time.RFC3339),
		"checkpointKey": key,
	})

	prev, err := checkpoint.Load(ctx, r.store, key)
	if err != nil {
		logger.WithError(err).Errorf("unable to load checkpoint")
		return nil, failureReasonCheckpointLoad, err
	}
	if prev.IsEmpty() {
		logger.Infof("no checkpoint stored, starting from an empty checkpoint")
	} else {
		logger.Debugf("loaded checkpoint %s", prev)
	}

	points, err := r.source.GetDatapoints(ctx, r.cfg.SourceMetric(), start, now)
	if err != nil {
		logger.WithError(err).Errorf("unable to get %s datapoints", r.cfg.SourceMetricName)
		return nil, failureReasonFetch, err
	}
	todayPoints, yesterdayLast := billing.SplitDays(points, now)
	logger.WithFields(log.Fields{
		"datapoints":      len(points),
		"todayDatapoints": len(todayPoints),
		"hasYesterday":    yesterdayLast != nil,
	}).Debugf("retrieved %s datapoints", r.cfg.SourceMetricName)

	delta, err := billing.ComputeDelta(billing.DeltaInput{
		Checkpoint:    prev,
		Today:         todayPoints,
		YesterdayLast: yesterdayLast,
	})
	if errors.Is(err, billing.ErrInsufficientHistory) && prev.IsEmpty() {
		// a fresh deployment has nothing to measure today's first reading
		// against, so it is handled as a day without data
		logger.Warnf("no datapoint before today's first reading and no checkpoint, publishing zero for today")
		delta = billing.DeltaResult{ResetToday: true, Checkpoint: prev, Outcome: billing.OutcomeNoData}
		err = nil
	}
	if err != nil {
		logger.WithError(err).Errorf("unable to compute daily charge")
		return nil, failureReasonEngine, err
	}
	engineOutcomesCounter.WithLabelValues(string(delta.Outcome)).Inc()

	result := &RunResult{
		Outcome:            delta.Outcome,
		Start:              start,
		End:                now,
		CurrentDifference:  delta.CurrentDifference,
		YesterdaysUpdate:   delta.YesterdaysUpdate,
		PreviousCheckpoint: prev.String(),
		Checkpoint:         delta.Checkpoint.String(),
	}
	logger = logger.WithFields(log.Fields{
		"outcome":           delta.Outcome,
		"currentDifference": delta.CurrentDifference.StringFixed(billing.CentPlaces),
		"yesterdaysUpdate":  delta.YesterdaysUpdate.StringFixed(billing.CentPlaces),
	})

	todayTotal := decimal.Zero
	if !delta.ResetToday {
		previousTotal, err := r.latestDailyTotal(ctx, todayStart, now)
		if err != nil {
			logger.WithError(err).Errorf("unable to get today's %s", r.cfg.DailyMetricName)
			return result, failureReasonFetch, err
		}
		todayTotal = previousTotal.Add(delta.CurrentDifference).Round(billing.CentPlaces)
	}
	values := []billing.Datapoint{{Timestamp: now, Sum: todayTotal}}

	var yesterdayTotal *decimal.Decimal
	if !delta.YesterdaysUpdate.IsZero() {
		previousTotal, err := r.latestDailyTotal(ctx, start, todayStart)
		if err != nil {
			logger.WithError(err).Errorf("unable to get yesterday's %s", r.cfg.DailyMetricName)
			return result, failureReasonFetch, err
		}
		total := previousTotal.Add(delta.YesterdaysUpdate).Round(billing.CentPlaces)
		yesterdayTotal = &total
		values = append(values, billing.Datapoint{Timestamp: billing.EndOfPreviousDay(now), Sum: total})
	}

	// today and yesterday are written together or not at all
	if err := r.publish(ctx, values); err != nil {
		logger.WithError(err).Errorf("unable to publish %s", r.cfg.DailyMetricName)
		return result, failureReasonPublish, err
	}
	result.TodayTotal = todayTotal
	result.YesterdayTotal = yesterdayTotal
	logger.Infof("published %s of %s for %s", r.cfg.DailyMetricName, todayTotal.StringFixed(billing.CentPlaces), todayStart.Format(dayFormat))
	if yesterdayTotal != nil {
		logger.Infof("published %s of %s for %s", r.cfg.DailyMetricName, yesterdayTotal.StringFixed(billing.CentPlaces), start.Format(dayFormat))
	}

	if delta.CheckpointAdvanced(prev) {
		if err := checkpoint.Save(ctx, r.store, key, delta.Checkpoint); err != nil {
			logger.WithError(err).Errorf("unable to save checkpoint")
			return result, failureReasonCheckpointSave, err
		}
		result.CheckpointSaved = true
		checkpointTimestampGauge.Set(float64(delta.Checkpoint.Timestamp.Unix()))
		logger.Infof("saved checkpoint %s", delta.Checkpoint)
	}
	return result, "", nil
}

const dayFormat = "2006-01-02"

// latestDailyTotal returns the most recent Daily Charge value in [start, end),
// or zero when none was published.
func (r *Runner) latestDailyTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	points, err := r.source.GetDatapoints(ctx, r.cfg.DailyMetric(), start, end)
	if err != nil {
		return decimal.Zero, err
	}
	latest := billing.Latest(points)
	if latest == nil {
		return decimal.Zero, nil
	}
	return latest.Sum, nil
}

func (r *Runner) publish(ctx context.Context, values []billing.Datapoint) error {
	if err := r.source.PutValues(ctx, r.cfg.DailyMetric(), values); err != nil {
		return fmt.Errorf("could not publish %s %v: %w", r.cfg.DailyMetricName, values, err)
	}
	for _, v := range values {
		f, _ := v.Sum.Float64()
		publishedDailyChargeGauge.WithLabelValues(v.Timestamp.Format(dayFormat)).Set(f)
	}
	return nil
}
