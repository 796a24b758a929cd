// Package validators provides the shared request validator.
package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// New returns the process-wide validator. Field names in errors use the
// json tag.
func New() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		instance = v
	})
	return instance
}

// Describe turns validation errors into a short message and per-field details.
func Describe(err error) (string, map[string]any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error(), nil
	}
	details := make(map[string]any, len(ve))
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule = fmt.Sprintf("%s=%s", rule, fe.Param())
		}
		details[field] = rule
		fields = append(fields, field)
	}
	return "invalid fields: " + strings.Join(fields, ", "), details
}
