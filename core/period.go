package core

import (
	"iter"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
)

// MaxRangeDays bounds the ranges accepted from callers.
const MaxRangeDays = 366

var (
	errInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	errRangeTooLong = errors.Errorf("range too long, expected at most %d days", MaxRangeDays)
)

// DateRange is an inclusive range of calendar dates.
// A range whose From is after To is empty, not invalid.
type DateRange struct {
	From civil.Date `json:"from"`
	To   civil.Date `json:"to"`
}

func NewDateRange(from, to civil.Date) DateRange {
	return DateRange{From: from, To: to}
}

// ParseDate parses a YYYY-MM-DD date; field names the input in the returned ValidationError.
func ParseDate(field, s string) (civil.Date, error) {
	d, err := civil.ParseDate(CleanString(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, NewValidationError(errInvalidDate, FieldError{Field: field, Error: errInvalidDate.Error()})
	}
	return d, nil
}

// ParseDateRange parses the bounds of a range, reporting every malformed bound at once.
// Ranges longer than MaxRangeDays are rejected; empty ranges are not.
func ParseDateRange(from, to string) (DateRange, error) {
	var fldErrs []FieldError
	fromDate, err := civil.ParseDate(CleanString(from))
	if err != nil || !fromDate.IsValid() {
		fldErrs = append(fldErrs, FieldError{Field: "from", Error: errInvalidDate.Error()})
	}
	toDate, err := civil.ParseDate(CleanString(to))
	if err != nil || !toDate.IsValid() {
		fldErrs = append(fldErrs, FieldError{Field: "to", Error: errInvalidDate.Error()})
	}
	if fldErrs != nil {
		return DateRange{}, NewValidationError(errInvalidDate, fldErrs...)
	}
	r := DateRange{From: fromDate, To: toDate}
	if r.Len() > MaxRangeDays {
		return DateRange{}, NewValidationError(errRangeTooLong, FieldError{Field: "to", Error: errRangeTooLong.Error()})
	}
	return r, nil
}

func (r DateRange) IsEmpty() bool {
	return r.From.After(r.To)
}

func (r DateRange) Contains(d civil.Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Len returns the number of days in the range.
func (r DateRange) Len() int {
	if r.IsEmpty() {
		return 0
	}
	return r.To.DaysSince(r.From) + 1
}

// Days yields every date of the range in ascending order.
// The sequence can be ranged over any number of times.
func (r DateRange) Days() iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		for d := r.From; !d.After(r.To); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func (r DateRange) String() string {
	return r.From.String() + ".." + r.To.String()
}
