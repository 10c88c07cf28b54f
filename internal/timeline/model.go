// Package timeline records and validates intra-operative timestamps on a
// case's procedure record, and derives elapsed-time metrics from them.
package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/surgical-ops/internal/cases"
)

// Field names one of the six ordered intra-operative timestamps.
type Field string

const (
	FieldWheelsIn        Field = "wheels_in"
	FieldAnesthesiaStart Field = "anesthesia_start"
	FieldAnesthesiaEnd   Field = "anesthesia_end"
	FieldIncisionTime    Field = "incision_time"
	FieldClosureTime     Field = "closure_time"
	FieldWheelsOut       Field = "wheels_out"
)

// fieldOrder is the required chronological order. Whichever subset of
// fields is populated must be strictly increasing in this order.
var fieldOrder = []Field{
	FieldWheelsIn,
	FieldAnesthesiaStart,
	FieldAnesthesiaEnd,
	FieldIncisionTime,
	FieldClosureTime,
	FieldWheelsOut,
}

// Record is a case's procedure record. It is auto-created on the first
// timeline write, seeded from the case's diagnosis and urgency.
type Record struct {
	CaseID          uuid.UUID  `json:"case_id"`
	Diagnosis       string     `json:"diagnosis"`
	Urgency         string     `json:"urgency"`
	WheelsIn        *time.Time `json:"wheels_in"`
	AnesthesiaStart *time.Time `json:"anesthesia_start"`
	AnesthesiaEnd   *time.Time `json:"anesthesia_end"`
	IncisionTime    *time.Time `json:"incision_time"`
	ClosureTime     *time.Time `json:"closure_time"`
	WheelsOut       *time.Time `json:"wheels_out"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Get returns the timestamp stored in the named field.
func (r *Record) Get(f Field) *time.Time {
	switch f {
	case FieldWheelsIn:
		return r.WheelsIn
	case FieldAnesthesiaStart:
		return r.AnesthesiaStart
	case FieldAnesthesiaEnd:
		return r.AnesthesiaEnd
	case FieldIncisionTime:
		return r.IncisionTime
	case FieldClosureTime:
		return r.ClosureTime
	case FieldWheelsOut:
		return r.WheelsOut
	}
	return nil
}

// Set writes the named field. Unknown fields are ignored; the field enum is
// closed at the patch boundary.
func (r *Record) Set(f Field, t *time.Time) {
	switch f {
	case FieldWheelsIn:
		r.WheelsIn = t
	case FieldAnesthesiaStart:
		r.AnesthesiaStart = t
	case FieldAnesthesiaEnd:
		r.AnesthesiaEnd = t
	case FieldIncisionTime:
		r.IncisionTime = t
	case FieldClosureTime:
		r.ClosureTime = t
	case FieldWheelsOut:
		r.WheelsOut = t
	}
}

// OptionalTime distinguishes a field absent from a patch from one explicitly
// set to null (clear) or to a timestamp.
type OptionalTime struct {
	Present bool
	Value   *time.Time
}

// UnmarshalJSON is only invoked for fields present in the payload, which is
// what makes absence observable.
func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("timeline: invalid timestamp %q: %w", raw, err)
	}
	t = t.UTC()
	o.Value = &t
	return nil
}

// Patch is a partial update of the six timeline fields. Absent fields leave
// the stored value untouched; explicit nulls clear it.
type Patch struct {
	WheelsIn        OptionalTime `json:"wheels_in"`
	AnesthesiaStart OptionalTime `json:"anesthesia_start"`
	AnesthesiaEnd   OptionalTime `json:"anesthesia_end"`
	IncisionTime    OptionalTime `json:"incision_time"`
	ClosureTime     OptionalTime `json:"closure_time"`
	WheelsOut       OptionalTime `json:"wheels_out"`
}

// Fields returns the patch's present fields in chronological field order.
func (p *Patch) Fields() []PatchField {
	all := []struct {
		field Field
		opt   OptionalTime
	}{
		{FieldWheelsIn, p.WheelsIn},
		{FieldAnesthesiaStart, p.AnesthesiaStart},
		{FieldAnesthesiaEnd, p.AnesthesiaEnd},
		{FieldIncisionTime, p.IncisionTime},
		{FieldClosureTime, p.ClosureTime},
		{FieldWheelsOut, p.WheelsOut},
	}
	var out []PatchField
	for _, f := range all {
		if f.opt.Present {
			out = append(out, PatchField{Field: f.field, Value: f.opt.Value})
		}
	}
	return out
}

// PatchField is one present field of a patch.
type PatchField struct {
	Field Field
	Value *time.Time
}

// Durations are derived elapsed-time metrics in whole minutes. Each is nil
// when either endpoint is missing.
type Durations struct {
	ORTimeMinutes         *int64 `json:"or_time_minutes"`
	SurgeryTimeMinutes    *int64 `json:"surgery_time_minutes"`
	AnesthesiaTimeMinutes *int64 `json:"anesthesia_time_minutes"`
}

// ComputeDurations derives the duration metrics from a record.
func ComputeDurations(rec *Record) Durations {
	return Durations{
		ORTimeMinutes:         minutesBetween(rec.WheelsIn, rec.WheelsOut),
		SurgeryTimeMinutes:    minutesBetween(rec.IncisionTime, rec.ClosureTime),
		AnesthesiaTimeMinutes: minutesBetween(rec.AnesthesiaStart, rec.AnesthesiaEnd),
	}
}

func minutesBetween(start, end *time.Time) *int64 {
	if start == nil || end == nil {
		return nil
	}
	minutes := int64(end.Sub(*start).Minutes())
	return &minutes
}

// statusExpectations maps a case status to the timeline fields a complete
// record would have by that point in the workflow.
var statusExpectations = map[cases.Status][]Field{
	cases.StatusInTheater: {FieldWheelsIn, FieldAnesthesiaStart, FieldIncisionTime},
	cases.StatusRecovery: {
		FieldWheelsIn, FieldAnesthesiaStart, FieldAnesthesiaEnd,
		FieldIncisionTime, FieldClosureTime, FieldWheelsOut,
	},
	cases.StatusCompleted: {
		FieldWheelsIn, FieldAnesthesiaStart, FieldAnesthesiaEnd,
		FieldIncisionTime, FieldClosureTime, FieldWheelsOut,
	},
}

// MissingFields lists the fields expected for the case's current status that
// the record has not captured yet.
func MissingFields(status cases.Status, rec *Record) []Field {
	expected, ok := statusExpectations[status]
	if !ok {
		return []Field{}
	}
	missing := []Field{}
	for _, f := range expected {
		if rec.Get(f) == nil {
			missing = append(missing, f)
		}
	}
	return missing
}

// Snapshot is the read model returned to callers.
type Snapshot struct {
	CaseID       uuid.UUID    `json:"case_id"`
	CaseStatus   cases.Status `json:"case_status"`
	Timeline     Timestamps   `json:"timeline"`
	Durations    Durations    `json:"durations"`
	MissingItems []Field      `json:"missing_items"`
}

// Timestamps is the wire shape of the six timeline fields.
type Timestamps struct {
	WheelsIn        *time.Time `json:"wheels_in"`
	AnesthesiaStart *time.Time `json:"anesthesia_start"`
	AnesthesiaEnd   *time.Time `json:"anesthesia_end"`
	IncisionTime    *time.Time `json:"incision_time"`
	ClosureTime     *time.Time `json:"closure_time"`
	WheelsOut       *time.Time `json:"wheels_out"`
}

func timestampsOf(rec *Record) Timestamps {
	return Timestamps{
		WheelsIn:        rec.WheelsIn,
		AnesthesiaStart: rec.AnesthesiaStart,
		AnesthesiaEnd:   rec.AnesthesiaEnd,
		IncisionTime:    rec.IncisionTime,
		ClosureTime:     rec.ClosureTime,
		WheelsOut:       rec.WheelsOut,
	}
}
