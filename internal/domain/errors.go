package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation error")
	ErrTerminal        = errors.New("job already terminal")
	ErrArtifactWritten = errors.New("artifact already written")
	ErrBusy            = errors.New("too many jobs in flight")
)
