package sampler

import (
	"fmt"
	"time"
)

// DeviceRejectedError indicates the sampler answered an operation with a
// REPLY message carrying a non-zero status code.
type DeviceRejectedError struct {
	Operation string
	Code      byte
}

func (e *DeviceRejectedError) Error() string {
	return fmt.Sprintf("device rejected %s (code %d)", e.Operation, e.Code)
}

// TimeoutError indicates the sampler did not answer within the reply
// window. The device may be off, on another exclusive channel, or wired to
// different ports.
type TimeoutError struct {
	Operation string
	Wait      time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply to %s within %v", e.Operation, e.Wait)
}
