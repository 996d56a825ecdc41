package billing

import (
	"sort"
	"time"
)

// StartOfDay returns midnight of the calendar day t falls on, in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfPreviousDay returns 23:59:59 of the day before t. This is the instant
// midnight apportionment splits at, and the timestamp yesterday's corrected
// total is published with.
func EndOfPreviousDay(t time.Time) time.Time {
	return StartOfDay(t).Add(-time.Second)
}

// StartOfPreviousDay returns midnight of the day before t.
func StartOfPreviousDay(t time.Time) time.Time {
	return StartOfDay(StartOfDay(t).Add(-time.Second))
}

// SortDescending orders points most recent first, in place.
func SortDescending(points []Datapoint) []Datapoint {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.After(points[j].Timestamp)
	})
	return points
}

// SplitDays partitions points by the calendar day of now. today holds the
// points on now's day, most recent first. yesterdayLast is the latest point
// of the previous day, or nil if there is none. Points on other days are
// ignored.
func SplitDays(points []Datapoint, now time.Time) (today []Datapoint, yesterdayLast *Datapoint) {
	todayStart := StartOfDay(now)
	yesterdayStart := StartOfPreviousDay(now)

	sorted := make([]Datapoint, len(points))
	copy(sorted, points)
	SortDescending(sorted)

	for i := range sorted {
		p := sorted[i]
		ts := p.Timestamp.In(now.Location())
		p.Timestamp = ts
		switch {
		case !ts.Before(todayStart):
			today = append(today, p)
		case !ts.Before(yesterdayStart) && yesterdayLast == nil:
			yesterdayLast = &p
		}
	}
	return today, yesterdayLast
}

// Latest returns the most recent datapoint, or nil for an empty series.
func Latest(points []Datapoint) *Datapoint {
	var latest *Datapoint
	for i := range points {
		if latest == nil || points[i].Timestamp.After(latest.Timestamp) {
			latest = &points[i]
		}
	}
	return latest
}
