package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
)

var (
	uniqueStudentsTag  = "unique_students"
	uniqueStudentsText = "a student can only be registered once"
)

// InitValidators registers the attendance validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(bulkRequestStructValidation, BulkRequest{})
	core.RegisterCustomTranslation(validate, translator, uniqueStudentsTag, uniqueStudentsText)
}

// bulkRequestStructValidation does BulkRequest's struct level validation
func bulkRequestStructValidation(sl validator.StructLevel) {
	if br, ok := sl.Current().Interface().(BulkRequest); ok {
		seen := make(map[string]struct{}, len(br.Registrations))
		for _, reg := range br.Registrations {
			if reg.StudentID == "" {
				continue // reported by the field validation
			}
			if _, dup := seen[reg.StudentID]; dup {
				sl.ReportError(br.Registrations, "registrations", "Registrations", uniqueStudentsTag, "")
				return
			}
			seen[reg.StudentID] = struct{}{}
		}
	}
}
