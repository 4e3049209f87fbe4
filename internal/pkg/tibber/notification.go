package tibber

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

type sendPushNotificationResponse struct {
	SendPushNotification *model.NotificationResult `json:"sendPushNotification"`
}

// SendPushNotification pushes a notification to the Tibber app of the account.
func (c *client) SendPushNotification(ctx context.Context, req model.NotificationRequest) (model.NotificationResult, error) {
	data, err := c.Request(ctx, sendPushNotificationMutation, map[string]any{
		"title":   req.Title,
		"message": req.Message,
	})
	if err != nil {
		return model.NotificationResult{}, err
	}

	resp := sendPushNotificationResponse{}
	if hasValue(data) {
		if err := json.Unmarshal(data, &resp); err != nil {
			return model.NotificationResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}
	if resp.SendPushNotification == nil {
		return model.NotificationResult{}, fmt.Errorf("%w: %s", ErrNoNotificationResult, string(data))
	}
	return *resp.SendPushNotification, nil
}
