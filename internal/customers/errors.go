package customers

import "errors"

var (
	ErrNotFound     = errors.New("customer not found")
	ErrInvalidInput = errors.New("invalid customer input")
)
