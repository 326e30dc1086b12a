package gateway

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"device-push-backend/config"
)

// APNsPusher is the subset of *apns2.Client used by APNsGateway.
type APNsPusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// APNsGateway delivers directly to Apple Push Notification service.
type APNsGateway struct {
	client APNsPusher
	topic  string
}

// NewAPNsClient creates a token authenticated APNs client.
func NewAPNsClient(cfg config.APNsConfig) (*apns2.Client, error) {
	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read apns auth key: %w", err)
	}

	authToken := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	if cfg.Production {
		return apns2.NewTokenClient(authToken).Production(), nil
	}
	return apns2.NewTokenClient(authToken).Development(), nil
}

// NewAPNsGateway creates an APNs backed gateway for the given bundle topic.
func NewAPNsGateway(client APNsPusher, topic string) *APNsGateway {
	return &APNsGateway{client: client, topic: topic}
}

// Deliver pushes msg as an alert notification.
func (g *APNsGateway) Deliver(ctx context.Context, msg Message) error {
	p := payload.NewPayload().
		AlertTitle(msg.Title).
		AlertBody(msg.Body).
		Sound("default")
	for k, v := range msg.Data {
		if k == "aps" {
			continue
		}
		p.Custom(k, v)
	}

	res, err := g.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: msg.Token,
		Topic:       g.topic,
		Payload:     p,
	})
	if err != nil {
		return deliveryError("apns", "push failed", err)
	}
	if !res.Sent() {
		return deliveryError("apns", fmt.Sprintf("rejected with status %d: %s", res.StatusCode, res.Reason), nil)
	}
	return nil
}
