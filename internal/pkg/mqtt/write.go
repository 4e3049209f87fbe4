package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

const sensorName = "cheapest_hour"

// PublishCheapest publishes today's cheapest hour as a Home Assistant sensor.
// The discovery config is sent once per home.
func (s *service) PublishCheapest(_ context.Context, home model.Home, hour model.PriceRecord, isNow bool) error {
	base := s.baseTopic(home)
	if err := s.registerSensor(home, hour, base); err != nil {
		return err
	}

	payload, err := json.Marshal(model.CheapestHourState{
		StartsAt: hour.StartsAt.Format(time.RFC3339),
		Total:    hour.Total.Decimal.String(),
		Currency: hour.Unit(),
		IsNow:    isNow,
	})
	if err != nil {
		return err
	}

	if err := wait(s.client.Publish(base+"/state", 0, true, payload), time.Second*10); err != nil {
		return fmt.Errorf("publishing cheapest hour state: %w", err)
	}
	return nil
}

func (s *service) registerSensor(home model.Home, hour model.PriceRecord, base string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.configuredSensors[base]; exists {
		return nil
	}

	payload, err := json.Marshal(defaultRegisterMsg(home, hour, base))
	if err != nil {
		return err
	}
	if err := wait(s.client.Publish(base+"/config", 1, true, payload), time.Second*5); err != nil {
		return fmt.Errorf("registering sensor: %w", err)
	}
	s.configuredSensors[base] = struct{}{}
	s.logger.Info("registered mqtt sensor", zap.String("topic", base))
	return nil
}

func (s *service) baseTopic(home model.Home) string {
	return fmt.Sprintf("%s/sensor/tibber_%s/%s", s.topicPrefix, homeSlug(home), sensorName)
}

func homeSlug(home model.Home) string {
	if home.AppNickname != "" {
		return slug.Make(home.AppNickname)
	}
	if home.ID != "" {
		return slug.Make(home.ID)
	}
	return "home"
}

func defaultRegisterMsg(home model.Home, hour model.PriceRecord, base string) model.RegisterMessage {
	identifier := "tibber_" + homeSlug(home)
	name := "Tibber " + home.AppNickname
	if home.AppNickname == "" {
		name = "Tibber " + homeSlug(home)
	}

	return model.RegisterMessage{
		Tilda:             base,
		Name:              "Cheapest hour price",
		ID:                identifier + "_" + sensorName,
		StateTopic:        "~/state",
		ValueTemplate:     "{{ value_json.total }}",
		UnitOfMeasurement: hour.Unit() + "/kWh",
		JSONAttributes:    "~/state",
		Device: model.RegisterDevice{
			Name:         name,
			Identifiers:  []string{identifier},
			Model:        "Price alert",
			Manufacturer: "Tibber",
		},
	}
}
