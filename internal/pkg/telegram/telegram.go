package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/anicoll/tibber-price-alert/internal/pkg/config"
	"github.com/anicoll/tibber-price-alert/internal/pkg/model"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type sink struct {
	bot    sender
	chatID int64
	logger *zap.Logger
}

// New connects to the bot api, it fails when the token is rejected.
func New(cfg *config.TelegramConfig, logger *zap.Logger) (*sink, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	logger.Info("authorized telegram bot", zap.String("username", bot.Self.UserName))
	return newSink(bot, cfg.ChatID, logger), nil
}

func newSink(bot sender, chatID int64, logger *zap.Logger) *sink {
	return &sink{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}
}

func (s *sink) Send(_ context.Context, req model.NotificationRequest, hour model.PriceRecord) error {
	msg := tgbotapi.NewMessage(s.chatID, formatMessage(req, hour))
	sent, err := s.bot.Send(msg)
	if err != nil {
		return err
	}
	s.logger.Debug("telegram message sent", zap.Int("message_id", sent.MessageID), zap.Int64("chat_id", s.chatID))
	return nil
}

func formatMessage(req model.NotificationRequest, hour model.PriceRecord) string {
	return fmt.Sprintf("%s\n%s\n%s", req.Title, req.Message, hour.StartsAt.Format("2006-01-02 15:04 MST"))
}
