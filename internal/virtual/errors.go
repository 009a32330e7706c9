package virtual

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// taxonomyError carries a user-facing message while still matching one of
// the sentinel errors above through errors.Is.
type taxonomyError struct {
	kind error
	msg  string
}

func (e *taxonomyError) Error() string { return e.msg }
func (e *taxonomyError) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) error {
	return &taxonomyError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func notFoundOr(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, format, args...)
	}
	return err
}
