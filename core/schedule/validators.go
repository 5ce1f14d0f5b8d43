package schedule

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "invalid weekday, expected one of monday, tuesday, wednesday, thursday, friday, saturday, sunday"

	clockTag  = "clock"
	clockText = "invalid time, expected HH:MM"

	timeWindowTag  = "time_window"
	timeWindowText = "start_time must be before end_time"
)

// InitValidators registers the schedule validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(clockTag, clockValidation)
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)

	validate.RegisterStructValidation(newScheduleStructValidation, NewSchedule{})
	core.RegisterCustomTranslation(validate, translator, timeWindowTag, timeWindowText)
}

// Custom Validators

func weekdayValidation(fl validator.FieldLevel) bool {
	_, err := ParseWeekday(fl.Field().String())
	return err == nil
}

func clockValidation(fl validator.FieldLevel) bool {
	_, err := ParseClock(fl.Field().String())
	return err == nil
}

// newScheduleStructValidation does NewSchedule's struct level validation
func newScheduleStructValidation(sl validator.StructLevel) {
	if ns, ok := sl.Current().Interface().(NewSchedule); ok {
		start, startErr := ParseClock(ns.StartTime)
		end, endErr := ParseClock(ns.EndTime)
		// malformed times are reported by their own field validation
		if startErr == nil && endErr == nil && !(start < end) {
			sl.ReportError(ns.EndTime, "end_time", "EndTime", timeWindowTag, "")
		}
	}
}
