package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidDatapoint is returned when a datapoint handed to the engine
	// is missing its timestamp, carries a negative sum, or is out of order.
	ErrInvalidDatapoint = errors.New("invalid datapoint")
)

// Datapoint is a single cumulative billing reading.
type Datapoint struct {
	Timestamp time.Time
	Sum       decimal.Decimal
}

// NewDatapoint returns a Datapoint with the timestamp truncated to the second.
func NewDatapoint(ts time.Time, sum decimal.Decimal) Datapoint {
	return Datapoint{
		Timestamp: ts.Truncate(time.Second),
		Sum:       sum,
	}
}

// Validate reports whether the datapoint can be folded.
func (d Datapoint) Validate() error {
	if d.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidDatapoint)
	}
	if d.Sum.IsNegative() {
		return fmt.Errorf("%w: negative sum %s at %s", ErrInvalidDatapoint, d.Sum, d.Timestamp)
	}
	return nil
}

func (d Datapoint) String() string {
	return fmt.Sprintf("%s@%s", d.Sum.StringFixed(2), d.Timestamp.Format(time.RFC3339))
}

// Checkpoint marks the most recent cumulative datapoint already folded into a
// Daily Charge value. The zero value is an empty checkpoint.
type Checkpoint struct {
	Timestamp time.Time
	Sum       decimal.Decimal
}

// CheckpointFrom returns the checkpoint recording d.
func CheckpointFrom(d Datapoint) Checkpoint {
	return Checkpoint{Timestamp: d.Timestamp, Sum: d.Sum}
}

// IsEmpty is true for a checkpoint that has never been written.
func (c Checkpoint) IsEmpty() bool {
	return c.Timestamp.IsZero()
}

// Equal compares timestamps as instants and sums by value.
func (c Checkpoint) Equal(other Checkpoint) bool {
	return c.Timestamp.Equal(other.Timestamp) && c.Sum.Equal(other.Sum)
}

func (c Checkpoint) String() string {
	if c.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%s@%s", c.Sum.StringFixed(2), c.Timestamp.Format(time.RFC3339))
}
