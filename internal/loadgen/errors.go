package loadgen

import "errors"

var (
	// ErrConfig is returned for unusable run settings.
	ErrConfig = errors.New("loadgen: invalid config")
	// ErrUnexpectedStatus is returned when the service answers with a status
	// the step does not accept.
	ErrUnexpectedStatus = errors.New("loadgen: unexpected status")
	// ErrMismatch is returned when the service disagrees with what the tool
	// submitted.
	ErrMismatch = errors.New("loadgen: verification failed")
)
