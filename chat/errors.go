package chat

import (
	"errors"
	"fmt"
)

// ErrChatBusy is returned when a public chat operation is attempted while
// another one is still active. No state is mutated; the caller may retry
// once the active operation has completed.
var ErrChatBusy = errors.New("chat: unable to proceed while another operation is active")

// ErrChatComplete is returned by a group chat invocation after the
// termination strategy has marked the conversation complete and automatic
// reset is disabled.
var ErrChatComplete = errors.New("chat: conversation is already complete")

// ValidationError rejects an entire operation before any state mutation,
// e.g. an append batch containing a system-role message.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string { return "chat: " + e.Reason }

// DeliveryError records a failure while delivering queued messages to one
// channel. It never affects delivery to other channels and is surfaced to
// whichever caller next synchronizes against the failed channel.
type DeliveryError struct {
	ChannelHash string
	Err         error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("chat: delivery to channel %s failed: %v", e.ChannelHash, e.Err)
}

// Unwrap exposes the underlying channel failure.
func (e *DeliveryError) Unwrap() error { return e.Err }
