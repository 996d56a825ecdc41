package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	yesterday = time.Date(2019, time.October, 14, 0, 0, 0, 0, time.UTC)
	today     = time.Date(2019, time.October, 15, 0, 0, 0, 0, time.UTC)
)

func at(day time.Time, hour, min, sec int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second)
}

func dp(ts time.Time, sum string) Datapoint {
	return NewDatapoint(ts, decimal.RequireFromString(sum))
}

func dpPtr(ts time.Time, sum string) *Datapoint {
	p := dp(ts, sum)
	return &p
}

func TestComputeDelta(t *testing.T) {
	checkpoint := CheckpointFrom(dp(at(today, 2, 0, 0), "195.00"))

	tests := map[string]struct {
		input DeltaInput

		expectOutcome    Outcome
		expectDifference string
		expectYesterday  string
		expectReset      bool
		expectCheckpoint Checkpoint
	}{
		"no datapoints today resets the daily total and keeps the checkpoint": {
			input: DeltaInput{
				Checkpoint:    checkpoint,
				YesterdayLast: dpPtr(at(yesterday, 23, 0, 0), "120.00"),
			},
			expectOutcome:    OutcomeNoData,
			expectDifference: "0",
			expectYesterday:  "0",
			expectReset:      true,
			expectCheckpoint: checkpoint,
		},
		"a jump across midnight is apportioned by elapsed seconds": {
			input: DeltaInput{
				Today:         []Datapoint{dp(at(today, 1, 0, 0), "123.00")},
				YesterdayLast: dpPtr(at(yesterday, 23, 0, 0), "120.00"),
			},
			expectOutcome:    OutcomeApportioned,
			expectDifference: "1.5",
			expectYesterday:  "1.5",
			expectCheckpoint: CheckpointFrom(dp(at(today, 1, 0, 0), "123.00")),
		},
		"a drop since yesterday is a billing cycle reset": {
			input: DeltaInput{
				Today:         []Datapoint{dp(at(today, 4, 0, 0), "12.00")},
				YesterdayLast: dpPtr(at(yesterday, 20, 0, 0), "450.00"),
			},
			expectOutcome:    OutcomeCycleReset,
			expectDifference: "12",
			expectYesterday:  "0",
			expectCheckpoint: CheckpointFrom(dp(at(today, 4, 0, 0), "12.00")),
		},
		"an unchanged sum since yesterday produces no deltas": {
			input: DeltaInput{
				Today:         []Datapoint{dp(at(today, 4, 0, 0), "80.00")},
				YesterdayLast: dpPtr(at(yesterday, 20, 0, 0), "80.00"),
			},
			expectOutcome:    OutcomeNoChange,
			expectDifference: "0",
			expectYesterday:  "0",
			expectCheckpoint: CheckpointFrom(dp(at(today, 4, 0, 0), "80.00")),
		},
		"two datapoints today use the difference between them": {
			input: DeltaInput{
				Checkpoint: checkpoint,
				Today: []Datapoint{
					dp(at(today, 6, 0, 0), "200.00"),
					dp(at(today, 2, 0, 0), "195.00"),
				},
			},
			expectOutcome:    OutcomeIntraday,
			expectDifference: "5",
			expectYesterday:  "0",
			expectCheckpoint: CheckpointFrom(dp(at(today, 6, 0, 0), "200.00")),
		},
		"intraday differences are rounded to cents": {
			input: DeltaInput{
				Today: []Datapoint{
					dp(at(today, 6, 0, 0), "200.126"),
					dp(at(today, 2, 0, 0), "195.12"),
				},
			},
			expectOutcome:    OutcomeIntraday,
			expectDifference: "5.01",
			expectYesterday:  "0",
			expectCheckpoint: CheckpointFrom(dp(at(today, 6, 0, 0), "200.126")),
		},
		"an intraday drop is a billing cycle reset": {
			input: DeltaInput{
				Today: []Datapoint{
					dp(at(today, 6, 0, 0), "3.40"),
					dp(at(today, 2, 0, 0), "610.00"),
				},
			},
			expectOutcome:    OutcomeCycleReset,
			expectDifference: "3.4",
			expectYesterday:  "0",
			expectCheckpoint: CheckpointFrom(dp(at(today, 6, 0, 0), "3.40")),
		},
		"a checkpoint equal to the latest datapoint is a no-op": {
			input: DeltaInput{
				Checkpoint: checkpoint,
				Today:      []Datapoint{dp(at(today, 2, 0, 0), "195.00")},
			},
			expectOutcome:    OutcomeAlreadyFolded,
			expectDifference: "0",
			expectYesterday:  "0",
			expectCheckpoint: checkpoint,
		},
		"a checkpoint newer than the latest datapoint does not regress": {
			input: DeltaInput{
				Checkpoint: checkpoint,
				Today:      []Datapoint{dp(at(today, 1, 0, 0), "190.00")},
			},
			expectOutcome:    OutcomeAlreadyFolded,
			expectDifference: "0",
			expectYesterday:  "0",
			expectCheckpoint: checkpoint,
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			result, err := ComputeDelta(test.input)
			require.NoError(t, err)

			assert.Equal(t, test.expectOutcome, result.Outcome)
			assert.Equal(t, test.expectDifference, result.CurrentDifference.String(), "current difference")
			assert.Equal(t, test.expectYesterday, result.YesterdaysUpdate.String(), "yesterday's update")
			assert.Equal(t, test.expectReset, result.ResetToday)
			assert.True(t, test.expectCheckpoint.Equal(result.Checkpoint), "expected checkpoint %s, got %s", test.expectCheckpoint, result.Checkpoint)
		})
	}
}

func TestComputeDeltaErrors(t *testing.T) {
	tests := map[string]struct {
		input     DeltaInput
		expectErr error
	}{
		"a single datapoint without yesterday's reading": {
			input: DeltaInput{
				Today: []Datapoint{dp(at(today, 1, 0, 0), "10.00")},
			},
			expectErr: ErrInsufficientHistory,
		},
		"a datapoint without a timestamp": {
			input: DeltaInput{
				Today: []Datapoint{{Sum: decimal.NewFromInt(1)}},
			},
			expectErr: ErrInvalidDatapoint,
		},
		"a negative sum": {
			input: DeltaInput{
				Today:         []Datapoint{dp(at(today, 1, 0, 0), "10.00")},
				YesterdayLast: dpPtr(at(yesterday, 1, 0, 0), "-1.00"),
			},
			expectErr: ErrInvalidDatapoint,
		},
		"today's datapoints in ascending order": {
			input: DeltaInput{
				Today: []Datapoint{
					dp(at(today, 1, 0, 0), "10.00"),
					dp(at(today, 2, 0, 0), "11.00"),
				},
			},
			expectErr: ErrInvalidDatapoint,
		},
		"yesterday's datapoint after today's": {
			input: DeltaInput{
				Today:         []Datapoint{dp(at(today, 1, 0, 0), "10.00")},
				YesterdayLast: dpPtr(at(today, 3, 0, 0), "9.00"),
			},
			expectErr: ErrInvalidDatapoint,
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			_, err := ComputeDelta(test.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, test.expectErr), "expected %v, got %v", test.expectErr, err)
		})
	}
}

func TestComputeDeltaIdempotent(t *testing.T) {
	input := DeltaInput{
		Today: []Datapoint{
			dp(at(today, 9, 0, 0), "42.17"),
			dp(at(today, 5, 0, 0), "40.00"),
		},
	}
	first, err := ComputeDelta(input)
	require.NoError(t, err)
	assert.Equal(t, "2.17", first.CurrentDifference.String())

	for i := 0; i < 3; i++ {
		input.Checkpoint = first.Checkpoint
		again, err := ComputeDelta(input)
		require.NoError(t, err)
		assert.True(t, again.CurrentDifference.IsZero())
		assert.True(t, again.Checkpoint.Equal(first.Checkpoint))
	}
}

func TestApportionConservesJump(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	jumps := []string{"0.01", "0.07", "1.00", "3.00", "17.33", "250.99", "1234.56"}
	yesterdayTimes := []time.Time{
		at(yesterday, 0, 0, 5),
		at(yesterday, 12, 30, 0),
		at(yesterday, 23, 0, 0),
		at(yesterday, 23, 59, 59),
	}
	todayTimes := []time.Time{
		at(today, 0, 0, 0),
		at(today, 0, 0, 1),
		at(today, 1, 0, 0),
		at(today, 23, 59, 59),
	}

	for _, jumpStr := range jumps {
		jump := decimal.RequireFromString(jumpStr)
		for _, from := range yesterdayTimes {
			for _, to := range todayTimes {
				y, d := apportion(jump, from, to)
				// the second between 23:59:59 and 00:00:00 belongs to neither day
				elapsed := decimal.NewFromInt(int64(to.Sub(from) / time.Second))
				lost := jump.Div(elapsed)
				diff := jump.Sub(y.Add(d)).Abs()
				assert.True(t, diff.LessThanOrEqual(tolerance.Add(lost)),
					"jump %s from %s to %s split into %s + %s", jump, from, to, y, d)
				assert.False(t, y.IsNegative())
				assert.False(t, d.IsNegative())
			}
		}
	}
}

func TestApportionScenario(t *testing.T) {
	y, d := apportion(decimal.RequireFromString("3.00"), at(yesterday, 23, 0, 0), at(today, 1, 0, 0))
	assert.Equal(t, "1.50", y.StringFixed(2))
	assert.Equal(t, "1.50", d.StringFixed(2))
}

func TestApportionDropsSplitSecond(t *testing.T) {
	y, d := apportion(decimal.RequireFromString("1.00"), at(yesterday, 23, 59, 59), at(today, 0, 0, 1))
	assert.Equal(t, "0.00", y.StringFixed(2))
	assert.Equal(t, "0.50", d.StringFixed(2))

	y, d = apportion(decimal.RequireFromString("7200.00"), at(yesterday, 23, 0, 0), at(today, 1, 0, 0))
	assert.Equal(t, "3599.00", y.StringFixed(2))
	assert.Equal(t, "3600.00", d.StringFixed(2))
}

func TestResetAttributesWholeSum(t *testing.T) {
	sums := []string{"0.00", "0.004", "12.00", "99.995", "449.99"}
	for _, sum := range sums {
		result, err := ComputeDelta(DeltaInput{
			Today:         []Datapoint{dp(at(today, 3, 0, 0), sum)},
			YesterdayLast: dpPtr(at(yesterday, 22, 0, 0), "450.00"),
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeCycleReset, result.Outcome)
		assert.True(t, decimal.RequireFromString(sum).Round(CentPlaces).Equal(result.CurrentDifference), "sum %s", sum)
		assert.True(t, result.YesterdaysUpdate.IsZero())
	}
}

func TestCheckpointNeverRegresses(t *testing.T) {
	series := []Datapoint{
		dp(at(yesterday, 20, 0, 0), "100.00"),
		dp(at(today, 2, 0, 0), "104.00"),
		dp(at(today, 6, 0, 0), "107.50"),
		dp(at(today, 10, 0, 0), "111.25"),
	}

	var cp Checkpoint
	// replay each run with the datapoints visible at that time, including
	// repeated runs that see nothing new
	for visible := 2; visible <= len(series); visible++ {
		for repeat := 0; repeat < 2; repeat++ {
			todayPoints, last := SplitDays(series[:visible], at(today, 23, 0, 0))
			result, err := ComputeDelta(DeltaInput{Checkpoint: cp, Today: todayPoints, YesterdayLast: last})
			require.NoError(t, err)
			assert.False(t, result.Checkpoint.Timestamp.Before(cp.Timestamp))
			cp = result.Checkpoint
		}
	}
	assert.True(t, cp.Timestamp.Equal(at(today, 10, 0, 0)))
}
