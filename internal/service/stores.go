package service

import (
	"context"
	"time"

	"go-auth-service/internal/model"
)

//go:generate mockgen -source=stores.go -destination=mocks/mock_stores.go -package=mocks

// UserStore persists users and their role memberships.
type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) error
	Update(ctx context.Context, id string, update model.UserUpdate) (model.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.User, error)
}

// RefreshRecordStore keeps the latest refresh token issued to each user.
type RefreshRecordStore interface {
	Upsert(ctx context.Context, userID string, token string, expiresAt time.Time) error
	FindByUser(ctx context.Context, userID string) (model.RefreshRecord, error)
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(encoded string, plaintext string) (bool, error)
}
