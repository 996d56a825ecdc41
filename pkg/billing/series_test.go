package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayBoundaries(t *testing.T) {
	now := time.Date(2019, time.November, 1, 7, 12, 44, 0, time.UTC)
	assert.Equal(t, time.Date(2019, time.November, 1, 0, 0, 0, 0, time.UTC), StartOfDay(now))
	assert.Equal(t, time.Date(2019, time.October, 31, 23, 59, 59, 0, time.UTC), EndOfPreviousDay(now))
	assert.Equal(t, time.Date(2019, time.October, 31, 0, 0, 0, 0, time.UTC), StartOfPreviousDay(now))
}

func TestDayBoundariesAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}
	// clocks went back at 02:00 on 2019-11-03
	now := time.Date(2019, time.November, 4, 9, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2019, time.November, 3, 0, 0, 0, 0, loc), StartOfPreviousDay(now))
	assert.Equal(t, 25*time.Hour, StartOfDay(now).Sub(StartOfPreviousDay(now)))
}

func TestSplitDays(t *testing.T) {
	now := at(today, 12, 0, 0)
	points := []Datapoint{
		dp(at(yesterday, 3, 0, 0), "90.00"),
		dp(at(today, 4, 0, 0), "101.00"),
		dp(at(yesterday, 22, 0, 0), "99.00"),
		dp(at(yesterday.Add(-24*time.Hour), 22, 0, 0), "80.00"),
		dp(at(today, 9, 0, 0), "103.00"),
	}

	todayPoints, last := SplitDays(points, now)
	require.Len(t, todayPoints, 2)
	assert.Equal(t, at(today, 9, 0, 0), todayPoints[0].Timestamp)
	assert.Equal(t, at(today, 4, 0, 0), todayPoints[1].Timestamp)
	require.NotNil(t, last)
	assert.Equal(t, at(yesterday, 22, 0, 0), last.Timestamp)
	assert.Equal(t, "99", last.Sum.String())

	// the input is left in its original order
	assert.Equal(t, at(yesterday, 3, 0, 0), points[0].Timestamp)
}

func TestSplitDaysUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2019, time.October, 15, 12, 0, 0, 0, loc)
	// 23:00 UTC on the 14th is already the 15th at UTC+2
	points := []Datapoint{dp(time.Date(2019, time.October, 14, 23, 0, 0, 0, time.UTC), "5.00")}

	todayPoints, last := SplitDays(points, now)
	require.Len(t, todayPoints, 1)
	assert.Nil(t, last)
	assert.Equal(t, 1, todayPoints[0].Timestamp.Hour())
}

func TestSplitDaysEmpty(t *testing.T) {
	todayPoints, last := SplitDays(nil, at(today, 1, 0, 0))
	assert.Empty(t, todayPoints)
	assert.Nil(t, last)
}

func TestLatest(t *testing.T) {
	assert.Nil(t, Latest(nil))
	points := []Datapoint{
		dp(at(today, 1, 0, 0), "3.00"),
		dp(at(today, 5, 0, 0), "7.00"),
		dp(at(today, 2, 0, 0), "4.00"),
	}
	latest := Latest(points)
	require.NotNil(t, latest)
	assert.Equal(t, "7", latest.Sum.String())
}

func TestDatapointValidate(t *testing.T) {
	assert.NoError(t, dp(at(today, 1, 0, 0), "0.00").Validate())
	assert.Error(t, Datapoint{}.Validate())
	assert.Error(t, dp(at(today, 1, 0, 0), "-0.01").Validate())
}

func TestNewDatapointTruncatesToSecond(t *testing.T) {
	p := dp(at(today, 1, 0, 0).Add(750*time.Millisecond), "1.00")
	assert.Equal(t, at(today, 1, 0, 0), p.Timestamp)
}
