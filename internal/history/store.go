package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pathsetu/internal/models"
	"pathsetu/internal/redis"
)

const modeCacheTTL = 30 * time.Minute

// Store is the append-only turn ledger plus the per-chat mode preference.
// Turns and mode have independent lifecycles: clearing one never touches
// the other.
type Store interface {
	// History returns the chat's turns in chronological order. A positive
	// window limits the result to the most recent turns; zero or negative
	// returns everything.
	History(ctx context.Context, chatID int64, window int) ([]models.Turn, error)

	// Append writes the user and assistant turns of one exchange as a
	// single logical update.
	Append(ctx context.Context, chatID int64, userText, assistantText string) error

	// Clear removes all turns for the chat.
	Clear(ctx context.Context, chatID int64) error

	Mode(ctx context.Context, chatID int64) (string, error)
	SetMode(ctx context.Context, chatID int64, mode string) error
}

type sqlStore struct {
	db          *sql.DB
	cache       *redis.Client
	defaultMode string
}

// NewStore builds a Store over the given database. The redis client is
// optional; when present it serves as a read-through cache for modes.
func NewStore(db *sql.DB, cache *redis.Client, defaultMode string) Store {
	return &sqlStore{db: db, cache: cache, defaultMode: defaultMode}
}

func (s *sqlStore) History(ctx context.Context, chatID int64, window int) ([]models.Turn, error) {
	query := `SELECT id, chat_id, role, content, created_at FROM turns WHERE chat_id = ? ORDER BY id ASC`
	args := []interface{}{chatID}
	if window > 0 {
		query = `SELECT id, chat_id, role, content, created_at FROM (
			SELECT id, chat_id, role, content, created_at FROM turns WHERE chat_id = ? ORDER BY id DESC LIMIT ?
		) recent ORDER BY id ASC`
		args = append(args, window)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.ID, &t.ChatID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if t.Role == models.RoleModel {
			t.Role = models.RoleAssistant
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *sqlStore) Append(ctx context.Context, chatID int64, userText, assistantText string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO turns (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		chatID, models.RoleUser, userText, now,
	); err != nil {
		return fmt.Errorf("insert user turn: %w", err)
	}
	// Assistant turns are stored under the legacy "model" role; readers
	// normalize it back to "assistant".
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO turns (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		chatID, models.RoleModel, assistantText, now,
	); err != nil {
		return fmt.Errorf("insert assistant turn: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit turns: %w", err)
	}
	return nil
}

func (s *sqlStore) Clear(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM turns WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	return nil
}

func (s *sqlStore) Mode(ctx context.Context, chatID int64) (string, error) {
	key := modeCacheKey(chatID)
	if s.cache != nil {
		if mode, err := s.cache.Get(ctx, key); err == nil && mode != "" {
			return mode, nil
		} else if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
			log.Printf("mode cache read failed: %v", err)
		}
	}

	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT mode FROM chat_prefs WHERE chat_id = ?`, chatID,
	).Scan(&mode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.defaultMode, nil
		}
		return "", fmt.Errorf("get mode: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, mode, modeCacheTTL); err != nil {
			log.Printf("mode cache write failed: %v", err)
		}
	}
	return mode, nil
}

func (s *sqlStore) SetMode(ctx context.Context, chatID int64, mode string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_prefs SET mode = ?, updated_at = ? WHERE chat_id = ?`,
		mode, now, chatID,
	)
	if err != nil {
		return fmt.Errorf("update mode: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mode rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO chat_prefs (chat_id, mode, updated_at) VALUES (?, ?, ?)`,
			chatID, mode, now,
		); err != nil {
			return fmt.Errorf("insert mode: %w", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, modeCacheKey(chatID)); err != nil && !errors.Is(err, redis.ErrCacheMiss) {
			log.Printf("mode cache invalidate failed: %v", err)
		}
	}
	return nil
}

func modeCacheKey(chatID int64) string {
	return fmt.Sprintf("chat:mode:%d", chatID)
}
