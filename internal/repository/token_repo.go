package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-auth-service/internal/model"
)

// TokenRepository keeps the latest refresh token per user.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Upsert(ctx context.Context, userID string, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (id, token, user_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		     token = EXCLUDED.token,
		     created_at = EXCLUDED.created_at,
		     expires_at = EXCLUDED.expires_at`,
		uuid.NewString(), token, userID, time.Now().UTC(), expiresAt)
	if err != nil {
		return fmt.Errorf("upsert refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) FindByUser(ctx context.Context, userID string) (model.RefreshRecord, error) {
	var rec model.RefreshRecord
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at FROM refresh_tokens
		 WHERE user_id = $1 AND expires_at > now()`, userID).
		Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.ExpiresAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.RefreshRecord{}, model.ErrRefreshNotFound
	}
	if err != nil {
		return model.RefreshRecord{}, fmt.Errorf("find refresh token: %w", err)
	}
	return rec, nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("clean expired tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
