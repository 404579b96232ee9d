package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindValidation         Kind = "validation"
	KindTemplateResolution Kind = "template_resolution"
	KindDegraded           Kind = "degraded_computation"
)

// Sentinels for errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrTemplateResolution = errors.New("template resolution failed")
	ErrDegraded           = errors.New("degraded computation")
)

type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Err != nil:
		return e.Code + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == sentinel(e.Kind)
}

func sentinel(k Kind) error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindValidation:
		return ErrValidation
	case KindTemplateResolution:
		return ErrTemplateResolution
	case KindDegraded:
		return ErrDegraded
	default:
		return nil
	}
}

func New(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func NotFound(code string, format string, args ...any) *Error {
	return New(KindNotFound, code, fmt.Errorf(format, args...))
}

func Validation(code string, format string, args ...any) *Error {
	return New(KindValidation, code, fmt.Errorf(format, args...))
}

func TemplateResolution(code string, format string, args ...any) *Error {
	return New(KindTemplateResolution, code, fmt.Errorf(format, args...))
}

// Degraded wraps the upstream failure that forced a fallback value.
func Degraded(code string, cause error) *Error {
	return New(KindDegraded, code, cause)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Kind
	}
	return ""
}
