package gateway

import (
	"context"

	"go.uber.org/zap"

	"device-push-backend/config"
	"device-push-backend/internal/model"
)

// New wires the gateways selected in cfg into a Router. Each client is created
// at most once and shared by the platforms that use it.
func New(ctx context.Context, cfg config.PushConfig, logger *zap.Logger) (*Router, error) {
	var (
		snsGateway *SNSGateway
		logGateway = NewLogGateway(logger.Named("gateway.log"))
	)

	build := func(name string) (Gateway, error) {
		switch name {
		case "sns":
			if snsGateway == nil {
				client, err := NewSNSClient(ctx, cfg.SNS.Region)
				if err != nil {
					return nil, err
				}
				snsGateway = NewSNSGateway(client, cfg.SNS, logger.Named("gateway.sns"))
			}
			return snsGateway, nil
		case "apns":
			client, err := NewAPNsClient(cfg.APNs)
			if err != nil {
				return nil, err
			}
			return NewAPNsGateway(client, cfg.APNs.Topic), nil
		default:
			return logGateway, nil
		}
	}

	ios, err := build(cfg.IOSGateway)
	if err != nil {
		return nil, err
	}
	android, err := build(cfg.AndroidGateway)
	if err != nil {
		return nil, err
	}

	logger.Info("push gateways configured",
		zap.String("ios", cfg.IOSGateway),
		zap.String("android", cfg.AndroidGateway),
		zap.Duration("timeout", cfg.Timeout),
	)

	return NewRouter(map[model.Platform]Gateway{
		model.PlatformIOS:     ios,
		model.PlatformAndroid: android,
	}, cfg.Timeout), nil
}
