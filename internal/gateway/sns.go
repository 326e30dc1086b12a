package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"device-push-backend/config"
	"device-push-backend/internal/model"
)

// SNSAPI is the subset of the SNS client used by SNSGateway.
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// SNSGateway publishes through AWS SNS mobile push. Device tokens are turned
// into platform endpoints on first use and the endpoint ARN is cached.
type SNSGateway struct {
	client       SNSAPI
	platformARNs map[model.Platform]string
	sandbox      bool
	endpoints    *cache.Cache
	logger       *zap.Logger
}

// NewSNSClient builds an SNS client from the default AWS credential chain.
func NewSNSClient(ctx context.Context, region string) (*awssns.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return awssns.NewFromConfig(cfg), nil
}

// NewSNSGateway creates an SNS backed gateway.
func NewSNSGateway(client SNSAPI, cfg config.SNSConfig, logger *zap.Logger) *SNSGateway {
	ttl := time.Duration(cfg.EndpointCacheTTL) * time.Second
	return &SNSGateway{
		client: client,
		platformARNs: map[model.Platform]string{
			model.PlatformAndroid: cfg.AndroidPlatformARN,
			model.PlatformIOS:     cfg.IOSPlatformARN,
		},
		sandbox:   cfg.Sandbox,
		endpoints: cache.New(ttl, 2*ttl),
		logger:    logger,
	}
}

// Deliver publishes msg to the device's platform endpoint.
func (g *SNSGateway) Deliver(ctx context.Context, msg Message) error {
	endpointARN, err := g.endpointFor(ctx, msg.Platform, msg.Token)
	if err != nil {
		return err
	}

	envelope, err := snsEnvelope(msg, g.sandbox)
	if err != nil {
		return deliveryError("sns", "failed to encode message", err)
	}

	_, err = g.client.Publish(ctx, &awssns.PublishInput{
		TargetArn:        aws.String(endpointARN),
		Message:          aws.String(envelope),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		// A disabled or deleted endpoint must be recreated on the next attempt.
		g.endpoints.Delete(endpointKey(msg.Platform, msg.Token))
		return deliveryError("sns", "publish failed", err)
	}
	return nil
}

func (g *SNSGateway) endpointFor(ctx context.Context, platform model.Platform, token string) (string, error) {
	key := endpointKey(platform, token)
	if arn, found := g.endpoints.Get(key); found {
		return arn.(string), nil
	}

	appARN := g.platformARNs[platform]
	if appARN == "" {
		return "", deliveryError("sns", "no platform application configured for "+string(platform), nil)
	}

	out, err := g.client.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return "", deliveryError("sns", "failed to create platform endpoint", err)
	}

	arn := aws.ToString(out.EndpointArn)
	g.endpoints.SetDefault(key, arn)
	g.logger.Debug("sns endpoint resolved", zap.String("platform", string(platform)), zap.String("endpoint_arn", arn))
	return arn, nil
}

func endpointKey(platform model.Platform, token string) string {
	return string(platform) + ":" + token
}

// snsEnvelope builds the per-protocol JSON message SNS expects when
// MessageStructure is "json": one entry per transport, each itself JSON text.
func snsEnvelope(msg Message, sandbox bool) (string, error) {
	gcmData := make(map[string]string, len(msg.Data)+2)
	for k, v := range msg.Data {
		gcmData[k] = stringify(v)
	}
	gcmData["title"] = msg.Title
	gcmData["body"] = msg.Body

	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{"title": msg.Title, "body": msg.Body},
		"data":         gcmData,
	})
	if err != nil {
		return "", err
	}

	apnsPayload := make(map[string]any, len(msg.Data)+1)
	for k, v := range msg.Data {
		apnsPayload[k] = v
	}
	apnsPayload["aps"] = map[string]any{
		"alert": map[string]string{"title": msg.Title, "body": msg.Body},
		"sound": "default",
	}
	apns, err := json.Marshal(apnsPayload)
	if err != nil {
		return "", err
	}

	apnsKey := "APNS"
	if sandbox {
		apnsKey = "APNS_SANDBOX"
	}

	envelope, err := json.Marshal(map[string]string{
		"default": msg.Body,
		"GCM":     string(gcm),
		apnsKey:   string(apns),
	})
	if err != nil {
		return "", err
	}
	return string(envelope), nil
}

// stringify renders a data value for transports that only accept string values.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
