package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dagchat/internal/observability"
	"dagchat/internal/store"
)

// MetadataStore implements store.MetadataStore against t_conversations (§6),
// adapted from the teacher's pgChatStore in chat_store_postgres.go.
type MetadataStore struct {
	pool *pgxpool.Pool
}

// NewMetadataStore wraps an already-opened pool.
func NewMetadataStore(pool *pgxpool.Pool) *MetadataStore {
	return &MetadataStore{pool: pool}
}

func (s *MetadataStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS t_conversations (
			id          VARCHAR PRIMARY KEY,
			user_id     VARCHAR NOT NULL,
			title       VARCHAR(64),
			model       VARCHAR,
			create_time TIMESTAMPTZ NOT NULL DEFAULT now(),
			update_time TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (s *MetadataStore) Create(ctx context.Context, id, userID, model string) error {
	logger := observability.LoggerWithTrace(ctx)
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO t_conversations (id, user_id, title, model, create_time, update_time)
		VALUES ($1, $2, '', $3, $4, $4)
	`, id, userID, model, now)
	if err != nil {
		logger.Error().Err(err).Str("conversation_id", id).Msg("failed to insert conversation header")
		return err
	}
	return nil
}

func (s *MetadataStore) UpdateHeader(ctx context.Context, id string, upd store.HeaderUpdate) error {
	now := time.Now().UTC()

	if upd.Title != nil && upd.Model != nil {
		_, err := s.pool.Exec(ctx, `
			UPDATE t_conversations SET title = $1, model = $2, update_time = $3 WHERE id = $4
		`, *upd.Title, *upd.Model, now, id)
		return mapNotFound(err)
	}
	if upd.Title != nil {
		ct, err := s.pool.Exec(ctx, `
			UPDATE t_conversations SET title = $1, update_time = $2 WHERE id = $3
		`, *upd.Title, now, id)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	}
	if upd.Model != nil {
		_, err := s.pool.Exec(ctx, `
			UPDATE t_conversations SET model = $1, update_time = $2 WHERE id = $3
		`, *upd.Model, now, id)
		return mapNotFound(err)
	}

	_, err := s.pool.Exec(ctx, `UPDATE t_conversations SET update_time = $1 WHERE id = $2`, now, id)
	return mapNotFound(err)
}

func (s *MetadataStore) List(ctx context.Context, userID string, page, pageSize int) ([]store.Conversation, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM t_conversations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, model, create_time, update_time
		FROM t_conversations
		WHERE user_id = $1
		ORDER BY update_time DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (s *MetadataStore) Rename(ctx context.Context, id, userID, newTitle string) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE t_conversations SET title = $1, update_time = $2 WHERE id = $3 AND user_id = $4
	`, newTitle, time.Now().UTC(), id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MetadataStore) Delete(ctx context.Context, id, userID string) error {
	ct, err := s.pool.Exec(ctx, `DELETE FROM t_conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MetadataStore) ReadModels(ctx context.Context, id string) (string, error) {
	var model string
	err := s.pool.QueryRow(ctx, `SELECT model FROM t_conversations WHERE id = $1`, id).Scan(&model)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	return model, err
}

func (s *MetadataStore) WriteModels(ctx context.Context, id, models string, updateTime time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE t_conversations SET model = $1, update_time = $2 WHERE id = $3
	`, models, updateTime, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapNotFound(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no rows") {
		return store.ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (store.Conversation, error) {
	var c store.Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Model, &c.CreateTime, &c.UpdateTime); err != nil {
		return store.Conversation{}, err
	}
	return c, nil
}
