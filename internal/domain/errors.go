package domain

import "errors"

var (
	// ErrPermissionDenied is returned when the user declines the camera prompt
	ErrPermissionDenied = errors.New("camera permission denied by user")

	// ErrCameraBusy is returned when the camera exists but cannot be read
	// (claimed by another application, hardware fault, track start failure)
	ErrCameraBusy = errors.New("camera busy or inaccessible")

	// ErrNotSupported is returned when the platform exposes no media capture API
	ErrNotSupported = errors.New("media capture not supported on this platform")

	// ErrNoCamera is returned when device enumeration finds no video input
	ErrNoCamera = errors.New("no camera device found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")
)

// LookupError is the classified failure of a barcode lookup against the
// product backend. Reason is always one of the FailureReason constants;
// Status carries the HTTP status code when the failure came from a response.
type LookupError struct {
	Reason  FailureReason
	Message string
	Status  int
}

func (e *LookupError) Error() string {
	return string(e.Reason) + ": " + e.Message
}

// AsLookupError unwraps err into a *LookupError, or classifies it as an
// unknown failure if it is anything else.
func AsLookupError(err error) *LookupError {
	var le *LookupError
	if errors.As(err, &le) {
		return le
	}
	return &LookupError{Reason: ReasonUnknown, Message: err.Error()}
}
