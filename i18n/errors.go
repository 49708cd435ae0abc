package i18n

import "errors"

var (
	// ErrUnsupportedFormat is returned when no parser is registered for a file extension.
	ErrUnsupportedFormat = errors.New("i18n: unsupported message file format")
	// ErrInvalidMessages is returned when a message file is not an object of
	// strings and nested objects.
	ErrInvalidMessages = errors.New("i18n: invalid message file")
)
