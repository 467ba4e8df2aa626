package editor

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Messages shown to the user in the banner.
const (
	msgWeightNumeric     = "Weight must be numeric."
	msgMuscleMassNumeric = "Muscle mass must be numeric."
	msgBodyFatNumeric    = "Body Fat must be numeric."
	msgVisceralInteger   = "Visceral Fat must be an integer."
	msgFutureDate        = "Date must not be in the future."
	msgPercentRange      = "Value must be between 0 and 100."
	msgNegative          = "Value must not be negative."
	msgNumberFormat      = "Invalid number format."
	msgWeightPositive    = "Weight must be greater than zero."
)

// customMessages maps "<StructNamespace>.<tag>" of a failed validation to the
// message shown to the user.
var customMessages = map[string]string{
	"measurements.Weight.gt":       msgWeightPositive,
	"measurements.BodyFat.gte":     msgPercentRange,
	"measurements.BodyFat.lte":     msgPercentRange,
	"measurements.MuscleMass.gte":  msgPercentRange,
	"measurements.MuscleMass.lte":  msgPercentRange,
	"measurements.VisceralFat.gte": msgNegative,
}

var measurementFields = map[string]Field{
	"Weight":      FieldWeight,
	"BodyFat":     FieldBodyFat,
	"MuscleMass":  FieldMuscleMass,
	"VisceralFat": FieldVisceralFat,
}

// FieldError is a validation failure tied to one form field. Message is the
// text shown in the banner.
type FieldError struct {
	Field   Field
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(f Field, msg string) *FieldError {
	return &FieldError{Field: f, Message: msg}
}

// toFieldError converts the first validator failure into a FieldError.
func toFieldError(err error) *FieldError {
	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) || len(validationErr) == 0 {
		return nil
	}
	e := validationErr[0]
	f, ok := measurementFields[e.Field()]
	if !ok {
		f = Field(e.Field())
	}
	msg, ok := customMessages[e.StructNamespace()+"."+e.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid.", e.Field())
	}
	return fieldError(f, msg)
}
