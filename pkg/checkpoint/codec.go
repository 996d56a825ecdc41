package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/operator-framework/daily-billing/pkg/billing"
)

const (
	// TimestampFormat is ISO-8601 with second precision and an explicit
	// offset, e.g. 2019-10-15T01:00:00+00:00.
	TimestampFormat = "2006-01-02T15:04:05-07:00"
)

var (
	// ErrCorrupt is returned when a stored checkpoint cannot be decoded.
	ErrCorrupt = errors.New("corrupt checkpoint")
)

// document is the stored JSON form of a checkpoint.
type document struct {
	Sum       *json.Number `json:"Sum,omitempty"`
	Timestamp string       `json:"Timestamp,omitempty"`
}

// Encode returns the JSON document for cp. An empty checkpoint encodes as {}.
func Encode(cp billing.Checkpoint) ([]byte, error) {
	var doc document
	if !cp.IsEmpty() {
		sum := json.Number(cp.Sum.String())
		doc.Sum = &sum
		doc.Timestamp = cp.Timestamp.Format(TimestampFormat)
	}
	return json.Marshal(&doc)
}

// Decode parses a JSON checkpoint document.
func Decode(data []byte) (billing.Checkpoint, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return billing.Checkpoint{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if doc.Timestamp == "" && doc.Sum == nil {
		return billing.Checkpoint{}, nil
	}
	if doc.Timestamp == "" || doc.Sum == nil {
		return billing.Checkpoint{}, fmt.Errorf("%w: both Sum and Timestamp are required", ErrCorrupt)
	}

	ts, err := parseTimestamp(doc.Timestamp)
	if err != nil {
		return billing.Checkpoint{}, fmt.Errorf("%w: invalid Timestamp '%s': %v", ErrCorrupt, doc.Timestamp, err)
	}
	sum, err := decimal.NewFromString(doc.Sum.String())
	if err != nil {
		return billing.Checkpoint{}, fmt.Errorf("%w: invalid Sum '%s': %v", ErrCorrupt, doc.Sum, err)
	}
	return billing.Checkpoint{
		Timestamp: ts.Truncate(time.Second),
		Sum:       sum,
	}, nil
}

// parseTimestamp accepts offsets written as +00:00 or Z, and fractional
// seconds.
func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return ts, nil
	}
	// checkpoints written without an offset are taken as UTC
	if ts, nerr := time.Parse("2006-01-02T15:04:05", s); nerr == nil {
		return ts, nil
	}
	return time.Time{}, err
}
