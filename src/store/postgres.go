package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements MessageStore on top of Postgres.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and returns a Postgres-backed
// MessageStore implementation.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

// CreateSchema ensures the messages and chat_config tables exist.
func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	if _, err := ps.DB.Exec(ctx, defaultPostgresSchema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) SaveMessage(ctx context.Context, msg Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := ps.DB.Exec(ctx, `
                INSERT INTO messages (chat_id, message_id, user_id, user_name, body, reply_to, kind, created_at)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
                ON CONFLICT (chat_id, message_id) DO NOTHING
        `, msg.ChatID, msg.MessageID, msg.UserID, msg.UserName, msg.Body, msg.ReplyTo, string(msg.Kind), msg.CreatedAt)
	if err != nil {
		return storageErr("save message", err)
	}
	return nil
}

func (ps *PostgresStore) RecentMessages(ctx context.Context, chatID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, `
                SELECT chat_id, message_id, user_id, user_name, body, reply_to, kind, created_at
                FROM messages
                WHERE chat_id = $1
                ORDER BY created_at DESC, message_id DESC
                LIMIT $2
        `, chatID, limit)
	if err != nil {
		return nil, storageErr("recent messages", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var kind string
		if err := rows.Scan(&m.ChatID, &m.MessageID, &m.UserID, &m.UserName, &m.Body, &m.ReplyTo, &kind, &m.CreatedAt); err != nil {
			return nil, storageErr("scan message", err)
		}
		m.Kind = Kind(kind)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent messages", err)
	}

	// Storage order is newest-first; summarizers need chronological.
	reverse(msgs)
	return msgs, nil
}

func (ps *PostgresStore) CountMessages(ctx context.Context, chatID int64) (int, error) {
	var count int
	if err := ps.DB.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID).Scan(&count); err != nil {
		return 0, storageErr("count messages", err)
	}
	return count, nil
}

// EvictMessages deletes rows older than the cutoff while always preserving
// the minimumToKeep most recent ones. The cutoff is computed here and passed
// as a timestamp parameter, never interpolated into SQL.
func (ps *PostgresStore) EvictMessages(ctx context.Context, chatID int64, daysToKeep, minimumToKeep int) (int, int, error) {
	total, err := ps.CountMessages(ctx, chatID)
	if err != nil {
		return 0, 0, err
	}
	if total <= minimumToKeep {
		return 0, total, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
	tag, err := ps.DB.Exec(ctx, `
                DELETE FROM messages
                WHERE chat_id = $1
                  AND created_at < $2
                  AND message_id NOT IN (
                        SELECT message_id FROM messages
                        WHERE chat_id = $1
                        ORDER BY created_at DESC, message_id DESC
                        LIMIT $3
                  )
        `, chatID, cutoff, minimumToKeep)
	if err != nil {
		return 0, 0, storageErr("evict messages", err)
	}

	deleted := int(tag.RowsAffected())
	return deleted, total - deleted, nil
}

func (ps *PostgresStore) Config(ctx context.Context, chatID int64) (ChatConfig, error) {
	cfg := ChatConfig{ChatID: chatID}
	err := ps.DB.QueryRow(ctx, `
                SELECT tone, length, language, include_names, daily_hour, days_to_keep, minimum_to_keep, eviction_threshold
                FROM chat_config
                WHERE chat_id = $1
        `, chatID).Scan(&cfg.Tone, &cfg.Length, &cfg.Language, &cfg.IncludeNames,
		&cfg.DailyHour, &cfg.DaysToKeep, &cfg.MinimumToKeep, &cfg.EvictionThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		cfg = DefaultChatConfig(chatID)
		if err := ps.SaveConfig(ctx, cfg); err != nil {
			return ChatConfig{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return ChatConfig{}, storageErr("load chat config", err)
	}
	return cfg, nil
}

func (ps *PostgresStore) SaveConfig(ctx context.Context, cfg ChatConfig) error {
	_, err := ps.DB.Exec(ctx, `
                INSERT INTO chat_config (chat_id, tone, length, language, include_names, daily_hour, days_to_keep, minimum_to_keep, eviction_threshold)
                VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                ON CONFLICT (chat_id) DO UPDATE SET
                        tone = EXCLUDED.tone,
                        length = EXCLUDED.length,
                        language = EXCLUDED.language,
                        include_names = EXCLUDED.include_names,
                        daily_hour = EXCLUDED.daily_hour,
                        days_to_keep = EXCLUDED.days_to_keep,
                        minimum_to_keep = EXCLUDED.minimum_to_keep,
                        eviction_threshold = EXCLUDED.eviction_threshold
        `, cfg.ChatID, cfg.Tone, cfg.Length, cfg.Language, cfg.IncludeNames,
		cfg.DailyHour, cfg.DaysToKeep, cfg.MinimumToKeep, cfg.EvictionThreshold)
	if err != nil {
		return storageErr("save chat config", err)
	}
	return nil
}

func (ps *PostgresStore) ScheduledChats(ctx context.Context) ([]ChatConfig, error) {
	rows, err := ps.DB.Query(ctx, `
                SELECT chat_id, tone, length, language, include_names, daily_hour, days_to_keep, minimum_to_keep, eviction_threshold
                FROM chat_config
                WHERE daily_hour >= 0
                ORDER BY chat_id
        `)
	if err != nil {
		return nil, storageErr("scheduled chats", err)
	}
	defer rows.Close()

	var out []ChatConfig
	for rows.Next() {
		var cfg ChatConfig
		if err := rows.Scan(&cfg.ChatID, &cfg.Tone, &cfg.Length, &cfg.Language, &cfg.IncludeNames,
			&cfg.DailyHour, &cfg.DaysToKeep, &cfg.MinimumToKeep, &cfg.EvictionThreshold); err != nil {
			return nil, storageErr("scan chat config", err)
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close(context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

const defaultPostgresSchema = `
CREATE TABLE IF NOT EXISTS messages (
    chat_id BIGINT NOT NULL,
    message_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    user_name TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    reply_to BIGINT,
    kind TEXT NOT NULL DEFAULT 'text',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (chat_id, message_id)
);

CREATE INDEX IF NOT EXISTS messages_chat_recency_idx ON messages (chat_id, created_at DESC, message_id DESC);

CREATE TABLE IF NOT EXISTS chat_config (
    chat_id BIGINT PRIMARY KEY,
    tone TEXT NOT NULL DEFAULT 'neutral',
    length TEXT NOT NULL DEFAULT 'medium',
    language TEXT NOT NULL DEFAULT 'es',
    include_names BOOLEAN NOT NULL DEFAULT TRUE,
    daily_hour INT NOT NULL DEFAULT -1,
    days_to_keep INT NOT NULL DEFAULT 7,
    minimum_to_keep INT NOT NULL DEFAULT 200,
    eviction_threshold INT NOT NULL DEFAULT 1000
);
`

var _ MessageStore = (*PostgresStore)(nil)
