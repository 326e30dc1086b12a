// Package gateway delivers a single push message to a single device token
// through a third-party push service.
package gateway

import (
	"context"
	"fmt"

	"device-push-backend/internal/model"
)

// Message is one notification addressed to one device token.
type Message struct {
	Token    string
	Platform model.Platform
	Title    string
	Body     string
	Data     map[string]any
}

// Gateway delivers a message. Implementations must be safe for concurrent use
// and report every failure as a *DeliveryError.
type Gateway interface {
	Deliver(ctx context.Context, msg Message) error
}

// DeliveryError reports that a gateway could not deliver a message.
type DeliveryError struct {
	Gateway string
	Reason  string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Gateway, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Gateway, e.Reason)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func deliveryError(gateway, reason string, err error) *DeliveryError {
	return &DeliveryError{Gateway: gateway, Reason: reason, Err: err}
}
