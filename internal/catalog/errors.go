package catalog

import "errors"

var (
	ErrNotFound       = errors.New("folder not found")
	ErrInvalidKey     = errors.New("invalid key")
	ErrInvalidVariant = errors.New("invalid variant")
)
