package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProposed_AcceptsStrictlyIncreasingSubset(t *testing.T) {
	now := *tm(t, "2026-03-09T12:00:00Z")
	rec := &Record{
		WheelsIn:     tm(t, "2026-03-09T08:00:00Z"),
		IncisionTime: tm(t, "2026-03-09T08:30:00Z"),
		WheelsOut:    tm(t, "2026-03-09T10:00:00Z"),
	}
	assert.Nil(t, validateProposed(rec, now))
}

func TestValidateProposed_RejectsOutOfOrder(t *testing.T) {
	now := *tm(t, "2026-03-09T12:00:00Z")
	rec := &Record{
		IncisionTime: tm(t, "2026-03-09T09:00:00Z"),
		ClosureTime:  tm(t, "2026-03-09T08:30:00Z"),
	}
	verr := validateProposed(rec, now)
	require.NotNil(t, verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, FieldClosureTime, verr.Violations[0].Field)
	assert.Equal(t, "must be after incision_time", verr.Violations[0].Message)
}

func TestValidateProposed_RejectsEqualTimestamps(t *testing.T) {
	now := *tm(t, "2026-03-09T12:00:00Z")
	same := tm(t, "2026-03-09T09:00:00Z")
	rec := &Record{IncisionTime: same, ClosureTime: same}
	verr := validateProposed(rec, now)
	require.NotNil(t, verr)
	assert.Equal(t, FieldClosureTime, verr.Violations[0].Field)
}

func TestValidateProposed_FutureSkewBoundary(t *testing.T) {
	now := *tm(t, "2026-03-09T12:00:00Z")

	atLimit := now.Add(futureSkew)
	assert.Nil(t, validateProposed(&Record{WheelsIn: &atLimit}, now), "exactly 5 minutes ahead is tolerated")

	pastLimit := now.Add(futureSkew + time.Second)
	verr := validateProposed(&Record{WheelsIn: &pastLimit}, now)
	require.NotNil(t, verr)
	assert.Equal(t, "timestamp is more than 5 minutes in the future", verr.Violations[0].Message)
}

func TestValidateProposed_CollectsAllViolations(t *testing.T) {
	now := *tm(t, "2026-03-09T12:00:00Z")
	rec := &Record{
		WheelsIn:        tm(t, "2026-03-09T09:00:00Z"),
		AnesthesiaStart: tm(t, "2026-03-09T13:00:00Z"),
		WheelsOut:       tm(t, "2026-03-09T08:00:00Z"),
	}
	verr := validateProposed(rec, now)
	require.NotNil(t, verr)
	require.Len(t, verr.Violations, 2)
	assert.Equal(t, FieldAnesthesiaStart, verr.Violations[0].Field)
	assert.Equal(t, FieldWheelsOut, verr.Violations[1].Field)
}
