package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"campus-food-backend/internal/config"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// ErrPushGone signals that a device token is permanently invalid
var ErrPushGone = errors.New("push subscription gone")

// PushPayload is the content of one push message
type PushPayload struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushSender delivers a push message to one device. It returns ErrPushGone
// when the device token should be forgotten.
type PushSender interface {
	Send(ctx context.Context, deviceToken string, msg PushPayload) error
}

// APNsPusher sends push notifications through Apple Push Notification service
type APNsPusher struct {
	client *apns2.Client
	topic  string
}

// NewAPNsPusher creates a token-authenticated APNs client from a .p8 key
func NewAPNsPusher(cfg config.APNsConfig) (*APNsPusher, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsPusher{client: client, topic: cfg.Topic}, nil
}

// Send pushes one alert to a device
func (p *APNsPusher) Send(ctx context.Context, deviceToken string, msg PushPayload) error {
	body := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
	for k, v := range msg.Data {
		body = body.Custom(k, v)
	}

	res, err := p.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload:     body,
	})
	if err != nil {
		return fmt.Errorf("%w: apns: %v", ErrExternal, err)
	}
	if res.Sent() {
		return nil
	}

	if res.StatusCode == http.StatusGone ||
		res.Reason == apns2.ReasonUnregistered ||
		res.Reason == apns2.ReasonBadDeviceToken {
		return fmt.Errorf("%w: %s", ErrPushGone, res.Reason)
	}
	return fmt.Errorf("%w: apns rejected push: %d %s", ErrExternal, res.StatusCode, res.Reason)
}
