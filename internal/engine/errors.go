package engine

import (
	"github.com/rotisserie/eris"
)

// Sentinel errors returned by the engine. Match them with errors.Is.
var (
	ErrInvalidInput     = eris.New("engine: invalid input")
	ErrModelUnavailable = eris.New("engine: model unavailable")
	ErrTimeout          = eris.New("engine: verification timed out")
)

// kindError ties a detailed message and cause to one of the sentinels.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string {
	s := e.kind.Error()
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }

func invalidInput(msg string, cause error) error {
	return &kindError{kind: ErrInvalidInput, msg: msg, cause: cause}
}

func modelUnavailable(cause error) error {
	return &kindError{kind: ErrModelUnavailable, cause: cause}
}

func timeout(cause error) error {
	return &kindError{kind: ErrTimeout, cause: cause}
}
