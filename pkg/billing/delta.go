package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CentPlaces is the precision every published amount is rounded to.
const CentPlaces = 2

var (
	// ErrInsufficientHistory is returned when today has a single new
	// datapoint but there is no reading from the previous day to measure
	// the jump against.
	ErrInsufficientHistory = errors.New("insufficient history: no datapoint for the previous day")
)

// Outcome names the branch of the fold that produced a DeltaResult.
type Outcome string

const (
	OutcomeNoData        Outcome = "no-data"
	OutcomeAlreadyFolded Outcome = "already-folded"
	OutcomeCycleReset    Outcome = "cycle-reset"
	OutcomeNoChange      Outcome = "no-change"
	OutcomeApportioned   Outcome = "apportioned"
	OutcomeIntraday      Outcome = "intraday"
)

// DeltaInput is everything the engine needs for one fold.
type DeltaInput struct {
	Checkpoint Checkpoint
	// Today holds the cumulative datapoints on the current calendar day,
	// most recent first.
	Today []Datapoint
	// YesterdayLast is the latest datapoint of the previous calendar day.
	YesterdayLast *Datapoint
}

// DeltaResult is the outcome of a fold.
type DeltaResult struct {
	// CurrentDifference is added to today's published total.
	CurrentDifference decimal.Decimal
	// YesterdaysUpdate is added to yesterday's published total. Zero means
	// yesterday is left alone.
	YesterdaysUpdate decimal.Decimal
	// ResetToday is set when today has no data and today's total should be
	// published as zero.
	ResetToday bool
	// Checkpoint is the checkpoint to persist after publishing.
	Checkpoint Checkpoint
	Outcome    Outcome
}

// CheckpointAdvanced reports whether the fold moved the checkpoint past prev.
func (r DeltaResult) CheckpointAdvanced(prev Checkpoint) bool {
	return !r.Checkpoint.Equal(prev)
}

// ComputeDelta folds the datapoints newer than the checkpoint into daily
// increments. It never performs I/O.
func ComputeDelta(in DeltaInput) (DeltaResult, error) {
	if err := validateInput(in); err != nil {
		return DeltaResult{}, err
	}

	if len(in.Today) == 0 {
		return DeltaResult{
			ResetToday: true,
			Checkpoint: in.Checkpoint,
			Outcome:    OutcomeNoData,
		}, nil
	}

	latest := in.Today[0]
	if !in.Checkpoint.IsEmpty() && !latest.Timestamp.After(in.Checkpoint.Timestamp) {
		return DeltaResult{
			Checkpoint: in.Checkpoint,
			Outcome:    OutcomeAlreadyFolded,
		}, nil
	}

	result := DeltaResult{Checkpoint: CheckpointFrom(latest)}

	if len(in.Today) == 1 {
		if in.YesterdayLast == nil {
			return DeltaResult{}, ErrInsufficientHistory
		}
		yesterday := *in.YesterdayLast
		jump := latest.Sum.Sub(yesterday.Sum)
		switch {
		case jump.IsNegative():
			result.CurrentDifference = latest.Sum.Round(CentPlaces)
			result.Outcome = OutcomeCycleReset
		case jump.IsZero():
			result.Outcome = OutcomeNoChange
		default:
			result.YesterdaysUpdate, result.CurrentDifference = apportion(jump, yesterday.Timestamp, latest.Timestamp)
			result.Outcome = OutcomeApportioned
		}
		return result, nil
	}

	diff := latest.Sum.Sub(in.Today[1].Sum)
	if diff.IsNegative() {
		// the cycle reset between two readings of the same local day
		result.CurrentDifference = latest.Sum.Round(CentPlaces)
		result.Outcome = OutcomeCycleReset
		return result, nil
	}
	result.CurrentDifference = diff.Round(CentPlaces)
	result.Outcome = OutcomeIntraday
	return result, nil
}

// apportion splits jump between the day of from and the day of to in
// proportion to the seconds elapsed on each side of midnight. The split
// instant is 23:59:59 of the earlier day; the later day is counted from
// 00:00:00. Each share is rounded independently.
func apportion(jump decimal.Decimal, from, to time.Time) (yesterdayShare, todayShare decimal.Decimal) {
	midnight := EndOfPreviousDay(to)
	totalSeconds := int64(to.Sub(from) / time.Second)
	yesterdaySeconds := int64(midnight.Sub(from) / time.Second)
	todaySeconds := int64(to.Sub(midnight.Add(time.Second)) / time.Second)

	total := decimal.NewFromInt(totalSeconds)
	yesterdayShare = jump.Mul(decimal.NewFromInt(yesterdaySeconds)).Div(total).Round(CentPlaces)
	todayShare = jump.Mul(decimal.NewFromInt(todaySeconds)).Div(total).Round(CentPlaces)
	return yesterdayShare, todayShare
}

func validateInput(in DeltaInput) error {
	for i, p := range in.Today {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("today[%d]: %w", i, err)
		}
		if i > 0 && !p.Timestamp.Before(in.Today[i-1].Timestamp) {
			return fmt.Errorf("%w: today[%d] at %s is not older than today[%d] at %s",
				ErrInvalidDatapoint, i, p.Timestamp, i-1, in.Today[i-1].Timestamp)
		}
	}
	if in.YesterdayLast != nil {
		if err := in.YesterdayLast.Validate(); err != nil {
			return fmt.Errorf("yesterday: %w", err)
		}
		if len(in.Today) > 0 && !in.YesterdayLast.Timestamp.Before(in.Today[len(in.Today)-1].Timestamp) {
			return fmt.Errorf("%w: yesterday's datapoint at %s is not older than today's datapoints",
				ErrInvalidDatapoint, in.YesterdayLast.Timestamp)
		}
	}
	return nil
}
