package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/bot"
	"github.com/mihailmariusiondev/al-grano-bot-sub000/src/store"
)

// telegramTransport talks to the Telegram Bot API over plain HTTP.
type telegramTransport struct {
	token  string
	client *http.Client
}

func newTelegramTransport(token string) (*telegramTransport, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return &telegramTransport{
		token:  token,
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (t *telegramTransport) url(method string) string {
	return fmt.Sprintf("https://api.telegram.org/bot%s/%s", t.token, method)
}

// Send posts one message to a chat.
func (t *telegramTransport) Send(ctx context.Context, dest int64, text string) error {
	payload, err := json.Marshal(map[string]any{
		"chat_id": dest,
		"text":    text,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url("sendMessage"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, body)
	}
	return nil
}

type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	MessageID int64   `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Date      int64   `json:"date"`
	Text      string  `json:"text"`
	Caption   string  `json:"caption"`
	ReplyTo   *struct {
		MessageID int64 `json:"message_id"`
	} `json:"reply_to_message"`

	Voice     json.RawMessage `json:"voice"`
	Audio     json.RawMessage `json:"audio"`
	VideoNote json.RawMessage `json:"video_note"`
	Video     json.RawMessage `json:"video"`
	Photo     json.RawMessage `json:"photo"`
	Document  json.RawMessage `json:"document"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

func (t *telegramTransport) getUpdates(ctx context.Context, offset int64) ([]tgUpdate, error) {
	payload, err := json.Marshal(map[string]any{
		"offset":  offset,
		"timeout": 50,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url("getUpdates"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		OK     bool       `json:"ok"`
		Result []tgUpdate `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, err
	}
	if !envelope.OK {
		return nil, fmt.Errorf("getUpdates: status %d", resp.StatusCode)
	}
	return envelope.Result, nil
}

// runUpdateLoop long-polls Telegram and feeds updates to the service until
// ctx is cancelled.
func runUpdateLoop(ctx context.Context, t *telegramTransport, svc *bot.Service, logger *zap.Logger) error {
	var offset int64
	for {
		updates, err := t.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("getUpdates failed, backing off", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			handleMessage(ctx, svc, u.Message, logger)
		}
	}
}

func handleMessage(ctx context.Context, svc *bot.Service, m *tgMessage, logger *zap.Logger) {
	if strings.HasPrefix(m.Text, "/") {
		handleCommand(ctx, svc, m, logger)
		return
	}

	msg := toStoreMessage(m)
	if msg.Body == "" {
		return
	}
	if err := svc.IngestMessage(ctx, msg); err != nil {
		logger.Warn("ingest failed",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int64("message_id", msg.MessageID),
			zap.Error(err))
	}
}

func handleCommand(ctx context.Context, svc *bot.Service, m *tgMessage, logger *zap.Logger) {
	cmd, arg, _ := strings.Cut(m.Text, " ")
	cmd, _, _ = strings.Cut(cmd, "@") // strip the "@botname" suffix in groups
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/resumen", "/summary":
		svc.TriggerScheduledSummary(ctx, m.Chat.ID)
	case "/diario", "/daily":
		if arg == "off" || arg == "" {
			if err := svc.DisableDaily(ctx, m.Chat.ID); err != nil {
				logger.Warn("disable daily failed", zap.Int64("chat_id", m.Chat.ID), zap.Error(err))
			}
			return
		}
		hour, err := strconv.Atoi(arg)
		if err != nil || hour < 0 || hour > 23 {
			logger.Info("ignoring bad daily hour", zap.Int64("chat_id", m.Chat.ID), zap.String("arg", arg))
			return
		}
		if err := svc.SetDailyHour(ctx, m.Chat.ID, hour); err != nil {
			logger.Warn("set daily failed", zap.Int64("chat_id", m.Chat.ID), zap.Error(err))
		}
	default:
		logger.Debug("unknown command", zap.String("command", cmd))
	}
}

// toStoreMessage maps a Telegram message to the store model. Media messages
// carry their caption as the body; kinds with no textual form are dropped by
// the caller when the body ends up empty.
func toStoreMessage(m *tgMessage) store.Message {
	msg := store.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Body:      m.Text,
		Kind:      store.KindText,
		CreatedAt: time.Unix(m.Date, 0).UTC(),
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.UserName = m.From.FirstName
		if msg.UserName == "" {
			msg.UserName = m.From.Username
		}
	}
	if m.ReplyTo != nil {
		id := m.ReplyTo.MessageID
		msg.ReplyTo = &id
	}

	switch {
	case m.Voice != nil:
		msg.Kind = store.KindVoice
	case m.Audio != nil:
		msg.Kind = store.KindAudio
	case m.Video != nil, m.VideoNote != nil:
		msg.Kind = store.KindVideo
	case m.Photo != nil:
		msg.Kind = store.KindPhoto
	case m.Document != nil:
		msg.Kind = store.KindDocument
	}
	if msg.Kind != store.KindText && msg.Body == "" {
		msg.Body = m.Caption
	}
	return msg
}
