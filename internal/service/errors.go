package service

import "errors"

var (
	ErrNotFound   = errors.New("not_found")
	ErrValidation = errors.New("validation")
	ErrStorage    = errors.New("storage")
	ErrAudit      = errors.New("audit_append")
)

func validationf(msg string) error {
	return errors.Join(ErrValidation, errors.New(msg))
}
