package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-auth-service/internal/logger"
	"go-auth-service/internal/model"
	"go-auth-service/internal/revocation"
	"go-auth-service/internal/token"
	"go-auth-service/pkg/apierror"
)

const bearerTokenType = "Bearer"

// AuthService issues, validates, rotates and revokes token pairs.
type AuthService struct {
	codec       *token.Codec
	lifetimes   token.Lifetimes
	users       UserStore
	records     RefreshRecordStore
	revocations revocation.Store
	hasher      PasswordHasher
}

func NewAuthService(
	codec *token.Codec,
	lifetimes token.Lifetimes,
	users UserStore,
	records RefreshRecordStore,
	revocations revocation.Store,
	hasher PasswordHasher,
) *AuthService {
	return &AuthService{
		codec:       codec,
		lifetimes:   lifetimes,
		users:       users,
		records:     records,
		revocations: revocations,
		hasher:      hasher,
	}
}

// Login checks the credentials and issues a fresh pair. Unknown email and wrong password
// produce the same error.
func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	email = model.CanonicalEmail(email)
	if email == "" || password == "" {
		return model.TokenPair{}, apierror.BadRequest("email and password are required", "")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.InvalidCredentials()
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(user.PasswordHash, password)
	if err != nil {
		logger.From(ctx).Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		return model.TokenPair{}, apierror.InvalidCredentials()
	}
	if !ok {
		return model.TokenPair{}, apierror.InvalidCredentials()
	}

	pair, err := s.Issue(ctx, user)
	if err != nil {
		return model.TokenPair{}, err
	}

	logger.From(ctx).Info("user logged in", "user_id", user.ID)
	return pair, nil
}

// Issue signs an access and a refresh token for user and persists the refresh token.
func (s *AuthService) Issue(ctx context.Context, user model.User) (model.TokenPair, error) {
	now := s.codec.Now()
	identity := token.Identity{Subject: user.ID, Email: user.Email, Roles: user.Roles}

	access := token.New(identity, token.KindAccess, now, s.lifetimes)
	refresh := token.New(identity, token.KindRefresh, now, s.lifetimes)

	accessToken, err := s.codec.Encode(access)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("encode access token: %w", err)
	}
	refreshToken, err := s.codec.Encode(refresh)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("encode refresh token: %w", err)
	}

	if err := s.records.Upsert(ctx, user.ID, refreshToken, time.Unix(refresh.ExpiresAt, 0).UTC()); err != nil {
		logger.From(ctx).Error("persist refresh token failed", "user_id", user.ID, "error", err)
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    bearerTokenType,
		ExpiresIn:    int64(s.lifetimes.Access.Seconds()),
	}, nil
}

// ValidateToken decodes tokenString, checks its kind and consults the revocation store.
// A store failure is returned as an internal error, never as a valid token.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string, kind token.Kind) (*token.Claims, error) {
	claims, err := s.codec.Decode(tokenString)
	if err != nil {
		logger.From(ctx).Debug("token rejected", "error", err)
		return nil, apierror.TokenInvalid()
	}
	if claims.Kind != kind {
		logger.From(ctx).Debug("token kind mismatch", "want", kind, "got", claims.Kind)
		return nil, apierror.TokenInvalid()
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, apierror.TokenInvalid()
	}

	return &claims, nil
}

// Refresh consumes a refresh token and returns a new pair. The consumed token is revoked
// before the new pair is issued; a crash in between leaves the client to log in again.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return model.TokenPair{}, apierror.BadRequest("refresh_token is required", "")
	}

	claims, err := s.ValidateToken(ctx, refreshToken, token.KindRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	record, err := s.records.FindByUser(ctx, claims.Subject)
	if errors.Is(err, model.ErrRefreshNotFound) {
		return model.TokenPair{}, apierror.TokenInvalid()
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("load refresh record: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(record.Token), []byte(refreshToken)) != 1 {
		logger.From(ctx).Warn("refresh token does not match latest issued", "user_id", claims.Subject)
		return model.TokenPair{}, apierror.TokenInvalid()
	}

	user, err := s.users.FindByEmail(ctx, claims.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, apierror.TokenInvalid()
	}
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("load user for refresh: %w", err)
	}
	if user.ID != claims.Subject {
		return model.TokenPair{}, apierror.TokenInvalid()
	}

	// The record is replaced by Issue, so a failed mark still leaves the old token unusable.
	s.revoke(ctx, claims.TokenID, claims.Remaining(s.codec.Now()))

	return s.Issue(ctx, user)
}

// Logout revokes the presented access token and, when given, the caller's refresh token.
// Store failures are logged; the caller is logged out regardless.
func (s *AuthService) Logout(ctx context.Context, claims *token.Claims, refreshToken string) error {
	if claims == nil {
		return apierror.Unauthorized("authentication required")
	}
	log := logger.From(ctx)

	if err := s.records.DeleteByUser(ctx, claims.Subject); err != nil {
		log.Error("delete refresh record failed", "user_id", claims.Subject, "error", err)
	}

	now := s.codec.Now()
	s.revoke(ctx, claims.TokenID, claims.Remaining(now))

	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		rc, err := s.codec.Decode(refreshToken)
		switch {
		case err != nil:
			log.Debug("ignoring undecodable refresh token on logout", "error", err)
		case rc.Kind != token.KindRefresh || rc.Subject != claims.Subject:
			log.Warn("ignoring foreign refresh token on logout", "user_id", claims.Subject)
		default:
			s.revoke(ctx, rc.TokenID, rc.Remaining(now))
		}
	}

	log.Info("user logged out", "user_id", claims.Subject)
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, claims *token.Claims) (model.User, error) {
	if claims == nil {
		return model.User{}, apierror.Unauthorized("authentication required")
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.NotFound("user not found", claims.Subject)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("load current user: %w", err)
	}
	return user, nil
}

// PurgeExpiredRecords deletes persisted refresh tokens past their expiry.
func (s *AuthService) PurgeExpiredRecords(ctx context.Context) (int64, error) {
	n, err := s.records.DeleteExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh records: %w", err)
	}
	return n, nil
}

// StartRecordJanitor runs PurgeExpiredRecords every interval until ctx is cancelled.
func (s *AuthService) StartRecordJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpiredRecords(ctx)
			if err != nil {
				logger.From(ctx).Error("refresh record janitor failed", "error", err)
				continue
			}
			if n > 0 {
				logger.From(ctx).Info("purged expired refresh records", "count", n)
			}
		}
	}
}

func (s *AuthService) revoke(ctx context.Context, tokenID string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := s.revocations.MarkRevoked(ctx, tokenID, ttl); err != nil {
		logger.From(ctx).Error("revoke token failed", "jti", tokenID, "error", err)
	}
}
