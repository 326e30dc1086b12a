package gateway

import (
	"context"

	"go.uber.org/zap"
)

// LogGateway only logs the message. It stands in for a real gateway when no
// credentials are configured.
type LogGateway struct {
	logger *zap.Logger
}

// NewLogGateway creates a gateway that never contacts a push service.
func NewLogGateway(logger *zap.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Deliver logs the message and reports success.
func (g *LogGateway) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return deliveryError("log", "context done", err)
	}
	g.logger.Info("push delivery (mock)",
		zap.String("platform", string(msg.Platform)),
		zap.String("token", redact(msg.Token)),
		zap.String("title", msg.Title),
	)
	return nil
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "…" + token[len(token)-4:]
}
