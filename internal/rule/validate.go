package rule

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	configValidator = newConfigValidator()

	requiredMessages = map[string]string{
		FieldStream:                  "Stream is mandatory",
		FieldAdditionalStream:        "Additional stream is mandatory",
		FieldThresholdType:           "Threshold type is mandatory",
		FieldAdditionalThresholdType: "Additional threshold type is mandatory",
		FieldMessagesOrder:           "Messages order is mandatory",
	}
	rangeMessages = map[string]string{
		FieldThreshold:           "Threshold must be greater than or equal to 0.",
		FieldAdditionalThreshold: "Additional threshold must be greater than or equal to 0.",
		FieldSearchWithinMS:      "Correlation Count Alert Condition search_within_ms must be greater than 0.",
		FieldExecuteEveryMS:      "Correlation Count Alert Condition execute_every_ms must be greater than 0.",
	}
	enumMessages = map[string]string{
		FieldThresholdType:           "Threshold type must be one of MORE, LESS",
		FieldAdditionalThresholdType: "Additional threshold type must be one of MORE, LESS",
		FieldMessagesOrder:           "Messages order must be one of BEFORE, AFTER, ANY",
	}
)

// newConfigValidator reports struct fields by their record key instead of Go name.
func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a canonical config the way the evaluation backend does.
// Params: typed config.
// Returns: field name to error message map; empty map means valid.
func Validate(cfg Config) map[string]string {
	out := make(map[string]string)
	err := configValidator.Struct(cfg)
	if err == nil {
		return out
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out[""] = err.Error()
		return out
	}
	for _, fieldErr := range fieldErrs {
		field := fieldErr.Field()
		if _, exists := out[field]; exists {
			continue
		}
		out[field] = messageFor(field, fieldErr.Tag())
	}
	return out
}

func messageFor(field, tag string) string {
	var message string
	switch tag {
	case "required":
		message = requiredMessages[field]
	case "oneof":
		message = enumMessages[field]
	case "gt", "gte":
		message = rangeMessages[field]
	}
	if message == "" {
		message = field + " is invalid"
	}
	return message
}
