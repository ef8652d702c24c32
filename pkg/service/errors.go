package service

import "errors"

var (
	ErrMissingURL = errors.New("missing url field")
	ErrInvalidURL = errors.New("invalid url: must be http:// or https://")
	ErrNotFound   = errors.New("short url not found")
)

// IsValidation reports whether err is a client input problem that must
// not be retried.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingURL) || errors.Is(err, ErrInvalidURL)
}
