package gateway

import (
	"context"
	"errors"
	"time"

	"device-push-backend/internal/model"
)

// Router picks a gateway by platform and bounds every call with a timeout.
type Router struct {
	routes  map[model.Platform]Gateway
	timeout time.Duration
}

// NewRouter creates a router. A zero timeout leaves calls unbounded.
func NewRouter(routes map[model.Platform]Gateway, timeout time.Duration) *Router {
	return &Router{routes: routes, timeout: timeout}
}

// Deliver forwards msg to the gateway registered for its platform.
func (r *Router) Deliver(ctx context.Context, msg Message) error {
	gw, ok := r.routes[msg.Platform]
	if !ok {
		return deliveryError("router", "no gateway for platform "+string(msg.Platform), nil)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	err := gw.Deliver(ctx, msg)
	if err == nil {
		return nil
	}

	var de *DeliveryError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return deliveryError("router", "delivery timed out", err)
	}
	return deliveryError("router", "delivery failed", err)
}
