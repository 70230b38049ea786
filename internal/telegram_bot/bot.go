package telegram_bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Major117-gkd/WaterAlert-Group10/internal/config"
	"github.com/Major117-gkd/WaterAlert-Group10/internal/models"
)

// maxPhotoBytes bounds photo downloads; the Bot API serves files up to 20 MB.
const maxPhotoBytes = 20 << 20

// Router handles inbound messages in arrival order.
type Router interface {
	Route(ctx context.Context, msg models.IncomingMessage)
}

// Bot is the Telegram transport: it receives reporter messages and delivers replies.
type Bot struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *zap.Logger
}

// NewBot creates a new Telegram bot instance
func NewBot(cfg config.TelegramConfig, logger *zap.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	botAPI.Debug = cfg.Debug

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:         botAPI,
		pollTimeout: cfg.PollTimeout,
		logger:      logger,
	}, nil
}

// Start begins listening for updates from Telegram and feeds them to router until ctx is done.
func (b *Bot) Start(ctx context.Context, router Router) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg, ok := toIncoming(update)
			if !ok {
				continue
			}
			router.Route(ctx, msg)
		}
	}
}

// toIncoming converts a private chat message. Other updates are ignored.
func toIncoming(update tgbotapi.Update) (models.IncomingMessage, bool) {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil || !m.Chat.IsPrivate() {
		return models.IncomingMessage{}, false
	}

	msg := models.IncomingMessage{
		ReporterID:  m.From.ID,
		DisplayName: strings.TrimSpace(m.From.FirstName + " " + m.From.LastName),
		Text:        m.Text,
		ReceivedAt:  m.Time(),
	}
	if msg.DisplayName == "" {
		msg.DisplayName = m.From.UserName
	}

	if m.IsCommand() {
		msg.Command = m.Command()
		msg.Text = m.CommandArguments()
	}
	if len(m.Photo) > 0 {
		// sizes are ascending, the last one is the original
		largest := m.Photo[len(m.Photo)-1]
		msg.Photo = &models.PhotoFile{FileID: largest.FileID, UniqueID: largest.FileUniqueID}
		msg.Text = m.Caption
	}
	if m.Location != nil {
		msg.Location = &models.Coordinates{Latitude: m.Location.Latitude, Longitude: m.Location.Longitude}
	}
	return msg, true
}

// Send delivers one message to a reporter's private chat.
func (b *Bot) Send(ctx context.Context, reporterID int64, out models.OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(reporterID, out.Text)
	if out.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if markup := replyMarkup(out); markup != nil {
		msg.ReplyMarkup = markup
	}

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", reporterID, err)
	}
	return nil
}

func replyMarkup(out models.OutgoingMessage) interface{} {
	if out.RemoveKeyboard {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	if out.LocationButton == "" && len(out.Keyboard) == 0 {
		return nil
	}

	var rows [][]tgbotapi.KeyboardButton
	if out.LocationButton != "" {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(out.LocationButton)))
	}
	for _, labels := range out.Keyboard {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

// Fetch downloads a photo sent by a reporter.
func (b *Bot) Fetch(ctx context.Context, file models.PhotoFile) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(file.FileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", file.FileID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", file.FileID, maxPhotoBytes)
	}
	return data, nil
}
