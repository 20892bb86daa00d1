package dispatch

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorWrapper reports struct validation failures keyed by the JSON
// field name so callers see the wire names, not Go identifiers.
type validatorWrapper struct {
	validate *validator.Validate
}

func newValidator() *validatorWrapper {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &validatorWrapper{validate: v}
}

// fieldErrors returns a field -> failed-rule map, empty when valid.
func (w *validatorWrapper) fieldErrors(i interface{}) map[string]string {
	fields := make(map[string]string)
	err := w.validate.Struct(i)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return fields
	}
	fields["request"] = "invalid"
	return fields
}
