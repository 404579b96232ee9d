package validate

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/prepcoach-backend/internal/platform/apperr"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
	})
	return v
}

// Struct validates s against its `validate` tags. Failures come back as a
// ValidationError naming every offending field.
func Struct(code string, s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(code, "%v", err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+" failed "+fe.Tag())
	}
	return apperr.Validation(code, "%s", strings.Join(parts, "; "))
}

// Var validates a single value against a tag expression such as "gte=0,lte=100".
func Var(code, field string, value any, tag string) error {
	if err := instance().Var(value, tag); err != nil {
		return apperr.Validation(code, "%s must satisfy %s", field, tag)
	}
	return nil
}
