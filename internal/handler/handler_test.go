package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/internal/token"
	"go-auth-service/pkg/apierror"
)

type stubAuth struct {
	loginErr     error
	logoutClaims *token.Claims
	logoutToken  string
	user         model.User
}

func (s *stubAuth) Login(_ context.Context, email string, _ string) (model.TokenPair, error) {
	if s.loginErr != nil {
		return model.TokenPair{}, s.loginErr
	}
	return model.TokenPair{AccessToken: "a.b.c", RefreshToken: "d.e.f", TokenType: "Bearer", ExpiresIn: 900}, nil
}

func (s *stubAuth) Refresh(_ context.Context, refreshToken string) (model.TokenPair, error) {
	if refreshToken == "" {
		return model.TokenPair{}, apierror.BadRequest("refresh_token is required", "")
	}
	return model.TokenPair{AccessToken: "g.h.i", RefreshToken: "j.k.l"}, nil
}

func (s *stubAuth) Logout(_ context.Context, claims *token.Claims, refreshToken string) error {
	s.logoutClaims = claims
	s.logoutToken = refreshToken
	return nil
}

func (s *stubAuth) CurrentUser(_ context.Context, _ *token.Claims) (model.User, error) {
	return s.user, nil
}

type stubUsers struct {
	got     string
	deleted string
	actor   string
}

func (s *stubUsers) Register(_ context.Context, req model.RegisterRequest) (model.User, error) {
	return model.User{ID: "new", Email: req.Email, PasswordHash: "secret-hash", Roles: []string{model.RoleUser}}, nil
}

func (s *stubUsers) Create(_ context.Context, req model.CreateUserRequest) (model.User, error) {
	return model.User{ID: "new", Email: req.Email, Roles: req.Roles}, nil
}

func (s *stubUsers) Get(_ context.Context, id string) (model.User, error) {
	s.got = id
	return model.User{ID: id, Email: id + "@example.com"}, nil
}

func (s *stubUsers) List(context.Context) ([]model.User, error) {
	return []model.User{{ID: "1"}, {ID: "2"}}, nil
}

func (s *stubUsers) Update(_ context.Context, id string, _ model.UpdateUserRequest) (model.User, error) {
	return model.User{}, model.ErrUserNotFound
}

func (s *stubUsers) Delete(_ context.Context, id string, actorID string) error {
	s.deleted = id
	s.actor = actorID
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func withClaims(r *http.Request, claims *token.Claims) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), claims))
}

func withURLParam(r *http.Request, key string, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apierror.InvalidCredentials(), http.StatusUnauthorized, apierror.CodeInvalidCredentials},
		{fmt.Errorf("wrapped: %w", apierror.TooManyRequests()), http.StatusTooManyRequests, apierror.CodeTooManyRequests},
		{model.ErrUserNotFound, http.StatusNotFound, apierror.CodeNotFound},
		{fmt.Errorf("create: %w", model.ErrUserAlreadyExists), http.StatusConflict, apierror.CodeAlreadyExists},
		{model.ErrInvalidInput, http.StatusBadRequest, apierror.CodeBadRequest},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, apierror.CodeInternal},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		body := decode(t, rec)
		assert.False(t, body.Success)
		assert.Equal(t, tc.code, body.Error.Code)
		assert.NotContains(t, body.Error.Message, "connection refused")
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, &stubUsers{})

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","password":"pw"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode(t, rec).Data.(map[string]any)
	assert.Equal(t, "a.b.c", data["access_token"])
	assert.Equal(t, "d.e.f", data["refresh_token"])

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := NewAuthHandler(&stubAuth{loginErr: apierror.InvalidCredentials()}, &stubUsers{})
	rec = httptest.NewRecorder()
	failing.Login(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.com","password":"pw"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid email or password", decode(t, rec).Error.Message)
}

func TestAuthHandlerRegisterHidesHash(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, &stubUsers{})
	rec := httptest.NewRecorder()
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"A","email":"a@b.com","password":"password-1"}`)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-hash")
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestAuthHandlerLogout(t *testing.T) {
	claims := &token.Claims{Subject: "u-1"}

	t.Run("without body", func(t *testing.T) {
		auth := &stubAuth{}
		rec := httptest.NewRecorder()
		NewAuthHandler(auth, &stubUsers{}).Logout(rec, withClaims(httptest.NewRequest(http.MethodPost, "/", nil), claims))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Same(t, claims, auth.logoutClaims)
		assert.Empty(t, auth.logoutToken)
		assert.Equal(t, "Logged out successfully", decode(t, rec).Data.(map[string]any)["message"])
	})

	t.Run("with refresh token", func(t *testing.T) {
		auth := &stubAuth{}
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"refresh_token":"r.t.x"}`))
		NewAuthHandler(auth, &stubUsers{}).Logout(rec, withClaims(req, claims))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "r.t.x", auth.logoutToken)
	})

	t.Run("without claims", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewAuthHandler(&stubAuth{}, &stubUsers{}).Logout(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestUserHandlerGet(t *testing.T) {
	user := &token.Claims{Subject: "u-1", Roles: []string{model.RoleUser}}
	admin := &token.Claims{Subject: "a-1", Roles: []string{model.RoleAdmin}}

	serve := func(claims *token.Claims, id string) (*httptest.ResponseRecorder, *stubUsers) {
		users := &stubUsers{}
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id)
		rec := httptest.NewRecorder()
		NewUserHandler(users).Get(rec, withClaims(req, claims))
		return rec, users
	}

	rec, users := serve(user, "u-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", users.got)

	rec, users = serve(user, "someone-else")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeForbidden, decode(t, rec).Error.Code)
	assert.Empty(t, users.got)

	rec, _ = serve(admin, "someone-else")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserHandlerMutations(t *testing.T) {
	admin := &token.Claims{Subject: "a-1", Roles: []string{model.RoleAdmin}}

	users := &stubUsers{}
	rec := httptest.NewRecorder()
	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/", nil), "id", "u-9")
	NewUserHandler(users).Delete(rec, withClaims(req, admin))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", users.deleted)
	assert.Equal(t, "a-1", users.actor)

	rec = httptest.NewRecorder()
	req = withURLParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"name":"x"}`)), "id", "u-9")
	NewUserHandler(users).Update(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	NewUserHandler(users).List(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	list := decode(t, rec).Data.(map[string]any)["users"].([]any)
	assert.Len(t, list, 2)

	rec = httptest.NewRecorder()
	NewUserHandler(users).Create(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"n@example.com","roles":["Admin"]}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	rec := httptest.NewRecorder()
	NewHealthHandler(nil).Live(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"postgres": up, "redis": up}).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"postgres": up, "redis": down}).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	checks := body.Data.(map[string]any)["checks"].(map[string]any)
	assert.Equal(t, "down", checks["redis"])
	assert.Equal(t, "up", checks["postgres"])
}
