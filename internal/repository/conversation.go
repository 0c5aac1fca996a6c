package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
)

// ConversationRepository is the persistence collaborator for the
// conversation gate: consent, rate window, history and turn appends.
type ConversationRepository interface {
	GetConsent(ctx context.Context, userID string) (bool, error)
	SetConsent(ctx context.Context, userID string, consented bool) error
	CheckRateLimit(ctx context.Context, userID string) (bool, error)
	History(ctx context.Context, userID string, limit int) ([]model.Turn, error)
	Append(ctx context.Context, userID string, kind model.MessageKind, content string, response *string) error
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type conversationRepo struct {
	db         *sqlx.DB
	maxPerHour int
}

func NewConversationRepository(db *sqlx.DB, maxPerHour int) ConversationRepository {
	return &conversationRepo{db: db, maxPerHour: maxPerHour}
}

func (r *conversationRepo) GetConsent(ctx context.Context, userID string) (bool, error) {
	var consented bool
	err := r.db.GetContext(ctx, &consented, `
		SELECT consented FROM conversations
		WHERE user_id = $1
		ORDER BY timestamp DESC LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return consented, err
}

func (r *conversationRepo) SetConsent(ctx context.Context, userID string, consented bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET consented = $2 WHERE user_id = $1
	`, userID, consented)
	if err != nil {
		return err
	}

	// A sender with no rows yet gets a seed row so the flag survives.
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO conversations (user_id, message_type, content, consented)
			VALUES ($1, $2, '', $3)
		`, userID, model.KindConsent, consented)
	}
	return err
}

// CheckRateLimit reports whether the sender is still under the hourly cap.
// The window is derived from persisted turn timestamps, not tracked in memory.
func (r *conversationRepo) CheckRateLimit(ctx context.Context, userID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM conversations
		WHERE user_id = $1 AND timestamp > NOW() - INTERVAL '1 hour'
	`, userID)
	if err != nil {
		return false, err
	}
	return count < r.maxPerHour, nil
}

func (r *conversationRepo) History(ctx context.Context, userID string, limit int) ([]model.Turn, error) {
	var turns []model.Turn
	err := r.db.SelectContext(ctx, &turns, `
		SELECT content, response FROM conversations
		WHERE user_id = $1
		ORDER BY timestamp DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}

	// Newest-first from the query, chronological for the prompt.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *conversationRepo) Append(ctx context.Context, userID string, kind model.MessageKind, content string, response *string) error {
	consented, err := r.GetConsent(ctx, userID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversations (user_id, message_type, content, response, consented)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, kind, content, response, consented)
	return err
}

func (r *conversationRepo) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM conversations WHERE timestamp < $1
	`, time.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
