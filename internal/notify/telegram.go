package notify

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/route"
)

// ---------------------------------------------------------------------------
// Telegram channel: topic-threaded sends and in-place edits
// ---------------------------------------------------------------------------

// Telegram implements Channel on the Bot API. Alerts go to one
// supergroup; destinations select the topic thread within it.
type Telegram struct {
	bot     *bot.Bot
	groupID int64

	// Stats.
	sendCount  atomic.Int64
	editCount  atomic.Int64
	errorCount atomic.Int64
}

// NewTelegram creates the Telegram channel. The token is validated
// later via Ping, not here.
func NewTelegram(cfg config.TelegramConfig) (*Telegram, error) {
	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("telegram: init: %w", err)
	}
	return &Telegram{bot: b, groupID: cfg.GroupID}, nil
}

// Ping verifies the bot token and returns the bot username.
func (t *Telegram) Ping(ctx context.Context) (string, error) {
	me, err := t.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("telegram: getMe: %w", err)
	}
	return me.Username, nil
}

// Send delivers content to one topic. A photo URL switches to a photo
// message with the body as caption, which changes how edits work.
func (t *Telegram) Send(ctx context.Context, dest route.Destination, content Content) (Handle, error) {
	var msg *models.Message
	var err error

	if content.PhotoURL != "" {
		msg, err = t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:          t.groupID,
			MessageThreadID: dest.TopicID,
			Photo:           &models.InputFileString{Data: content.PhotoURL},
			Caption:         content.Text,
			ParseMode:       models.ParseModeMarkdownV1,
			ReplyMarkup:     keyboard(content.Buttons),
		})
	} else {
		msg, err = t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          t.groupID,
			MessageThreadID: dest.TopicID,
			Text:            content.Text,
			ParseMode:       models.ParseModeMarkdownV1,
			ReplyMarkup:     keyboard(content.Buttons),
			LinkPreviewOptions: &models.LinkPreviewOptions{
				IsDisabled: bot.True(),
			},
		})
	}
	if err != nil {
		t.errorCount.Add(1)
		return Handle{}, fmt.Errorf("telegram: send to topic %d: %w", dest.TopicID, err)
	}

	t.sendCount.Add(1)
	return Handle{
		MessageID: msg.ID,
		TopicID:   dest.TopicID,
		HasPhoto:  content.PhotoURL != "",
	}, nil
}

// Edit rewrites a sent message in place. Telegram rejects edits whose
// content is unchanged; that case maps to ErrNotModified.
func (t *Telegram) Edit(ctx context.Context, h Handle, content Content) error {
	var err error
	if h.HasPhoto {
		_, err = t.bot.EditMessageCaption(ctx, &bot.EditMessageCaptionParams{
			ChatID:      t.groupID,
			MessageID:   h.MessageID,
			Caption:     content.Text,
			ParseMode:   models.ParseModeMarkdownV1,
			ReplyMarkup: keyboard(content.Buttons),
		})
	} else {
		_, err = t.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      t.groupID,
			MessageID:   h.MessageID,
			Text:        content.Text,
			ParseMode:   models.ParseModeMarkdownV1,
			ReplyMarkup: keyboard(content.Buttons),
			LinkPreviewOptions: &models.LinkPreviewOptions{
				IsDisabled: bot.True(),
			},
		})
	}
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "message is not modified") {
			return ErrNotModified
		}
		t.errorCount.Add(1)
		return fmt.Errorf("telegram: edit message %d: %w", h.MessageID, err)
	}

	t.editCount.Add(1)
	return nil
}

// Announce posts a plain service message to a topic, used for the
// startup banner and debug reports. Failures are logged, never fatal.
func (t *Telegram) Announce(ctx context.Context, topicID int, text string) {
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          t.groupID,
		MessageThreadID: topicID,
		Text:            text,
	})
	if err != nil {
		log.Warn().Err(err).Int("topic", topicID).Msg("telegram: announce failed")
	}
}

// keyboard returns a nil interface when there are no rows, so the
// transport omits reply_markup entirely instead of sending null.
func keyboard(rows [][]Button) models.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, models.InlineKeyboardButton{Text: b.Text, URL: b.URL})
		}
		kb = append(kb, r)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

// TelegramStats returns transport counters.
type TelegramStats struct {
	SendCount  int64 `json:"send_count"`
	EditCount  int64 `json:"edit_count"`
	ErrorCount int64 `json:"error_count"`
}

func (t *Telegram) Stats() TelegramStats {
	return TelegramStats{
		SendCount:  t.sendCount.Load(),
		EditCount:  t.editCount.Load(),
		ErrorCount: t.errorCount.Load(),
	}
}
