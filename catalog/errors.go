package catalog

import "errors"

var (
	// ErrUnavailable is returned when neither the persisted catalog nor the default template can be read
	ErrUnavailable = errors.New("grocery list not available")
	// ErrMalformed is returned for a catalog document that fails validation
	ErrMalformed = errors.New("malformed grocery list")
	// ErrBusy is returned when the store does not accept or answer a request in time
	ErrBusy = errors.New("grocery list store is busy")
	// ErrClosed is returned after the store is closed
	ErrClosed = errors.New("grocery list store is closed")
)
