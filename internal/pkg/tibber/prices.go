package tibber

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
	"go.uber.org/zap"
)

type todayPricesResponse struct {
	Viewer *struct {
		Homes []struct {
			ID                  string `json:"id"`
			AppNickname         string `json:"appNickname"`
			CurrentSubscription *struct {
				PriceInfo *struct {
					Today json.RawMessage `json:"today"`
				} `json:"priceInfo"`
			} `json:"currentSubscription"`
		} `json:"homes"`
	} `json:"viewer"`
}

// FetchTodayPrices returns today's hourly prices of the first home on the account.
func (c *client) FetchTodayPrices(ctx context.Context) (model.PriceInfo, error) {
	data, err := c.Request(ctx, todayPricesQuery, nil)
	if err != nil {
		return model.PriceInfo{}, err
	}
	if !hasValue(data) {
		return model.PriceInfo{}, ErrNoPriceData
	}

	resp := todayPricesResponse{}
	if err := json.Unmarshal(data, &resp); err != nil {
		return model.PriceInfo{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if resp.Viewer == nil || len(resp.Viewer.Homes) == 0 {
		return model.PriceInfo{}, fmt.Errorf("%w: account has no homes", ErrNoPriceData)
	}
	home := resp.Viewer.Homes[0]
	if home.CurrentSubscription == nil || home.CurrentSubscription.PriceInfo == nil ||
		!hasValue(home.CurrentSubscription.PriceInfo.Today) {
		return model.PriceInfo{}, fmt.Errorf("%w: home %s has no current price info", ErrNoPriceData, home.ID)
	}

	today, err := model.DecodePriceList(home.CurrentSubscription.PriceInfo.Today)
	if err != nil {
		return model.PriceInfo{}, err
	}
	c.logger.Debug("received prices from tibber",
		zap.String("home_id", home.ID),
		zap.Int("records", len(today)),
	)

	return model.PriceInfo{
		Home: model.Home{
			ID:          home.ID,
			AppNickname: home.AppNickname,
		},
		Today: today,
	}, nil
}
