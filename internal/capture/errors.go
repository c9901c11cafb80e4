// ABOUTME: Microphone acquisition errors
// ABOUTME: Classifies device failures into distinct, user-presentable causes
package capture

import (
	"errors"
	"os"
	"strings"
)

// Acquisition failure causes
var (
	ErrPermissionDenied         = errors.New("microphone permission denied")
	ErrDeviceNotFound           = errors.New("no microphone found")
	ErrDeviceBusy               = errors.New("microphone is busy")
	ErrConstraintsUnsatisfiable = errors.New("microphone cannot satisfy capture format")
)

// AcquireError wraps a device failure with its classified cause
type AcquireError struct {
	Cause error // one of the Err* sentinels, or nil when unclassified
	Err   error
}

func (e *AcquireError) Error() string {
	if e.Cause == nil {
		return "microphone error: " + e.Err.Error()
	}
	return e.Cause.Error() + ": " + e.Err.Error()
}

func (e *AcquireError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Cause, e.Err}
}

// UserMessage returns the text shown to the user for this failure
func (e *AcquireError) UserMessage() string {
	switch e.Cause {
	case ErrPermissionDenied:
		return "Microphone access denied. Please allow microphone permissions in your system settings."
	case ErrDeviceNotFound:
		return "No microphone found. Please connect a microphone."
	case ErrDeviceBusy:
		return "Microphone is being used by another app."
	case ErrConstraintsUnsatisfiable:
		return "Microphone hardware mismatch. Please try a different device."
	default:
		return "Microphone error: " + e.Err.Error()
	}
}

// Classify wraps err in an AcquireError, inferring the cause from known
// error values and host error text
func Classify(err error) *AcquireError {
	if err == nil {
		return nil
	}
	var acq *AcquireError
	if errors.As(err, &acq) {
		return acq
	}
	return &AcquireError{Cause: causeOf(err), Err: err}
}

func causeOf(err error) error {
	for _, sentinel := range []error{ErrPermissionDenied, ErrDeviceNotFound, ErrDeviceBusy, ErrConstraintsUnsatisfiable} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	if errors.Is(err, os.ErrPermission) {
		return ErrPermissionDenied
	}
	if errors.Is(err, os.ErrNotExist) {
		return ErrDeviceNotFound
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "not allowed"), strings.Contains(msg, "denied"):
		return ErrPermissionDenied
	case strings.Contains(msg, "no default"), strings.Contains(msg, "not found"),
		strings.Contains(msg, "no such"), strings.Contains(msg, "invalid device"):
		return ErrDeviceNotFound
	case strings.Contains(msg, "busy"), strings.Contains(msg, "unavailable"), strings.Contains(msg, "in use"):
		return ErrDeviceBusy
	case strings.Contains(msg, "sample rate"), strings.Contains(msg, "channel count"),
		strings.Contains(msg, "sample format"), strings.Contains(msg, "constraint"):
		return ErrConstraintsUnsatisfiable
	}
	return nil
}
