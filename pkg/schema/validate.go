package schema

import "github.com/florelab/stepwise/pkg/domain"

// Schema is a map of field names to their expected types.
// Example: {"email": Email(), "claims": Optional(Slice(String()))}
type Schema map[string]Type

// Fields returns the field names this schema owns, in no particular order.
func (s Schema) Fields() []string {
	fields := make([]string, 0, len(s))
	for name := range s {
		fields = append(fields, name)
	}
	return fields
}

// Validate checks data against the schema and returns all field-level
// failures found, or nil when the slice is valid. Fields wrapped in
// Optional validate successfully when absent or empty; everything else is
// required. Extra fields in data are ignored; they belong to other steps.
func Validate(s Schema, data map[string]any) []domain.FieldError {
	if len(s) == 0 {
		return nil
	}

	var errs []domain.FieldError
	for fieldName, fieldType := range s {
		_, optional := fieldType.(*OptionalType)
		value, exists := data[fieldName]
		if !exists || (!optional && isEmpty(value)) {
			if optional {
				continue
			}
			errs = append(errs, domain.FieldError{
				Field:  fieldName,
				Reason: "required",
			})
			continue
		}

		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, domain.FieldError{
				Field:  fieldName,
				Reason: err.Error(),
				Value:  value,
			})
		}
	}
	return errs
}
