package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

type userService interface {
	Create(ctx context.Context, req model.CreateUserRequest) (model.User, error)
	Get(ctx context.Context, id string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id string, req model.UpdateUserRequest) (model.User, error)
	Delete(ctx context.Context, id string, actorID string) error
}

type UserHandler struct {
	service userService
	admins  middleware.RoleRequirement
}

func NewUserHandler(service userService) *UserHandler {
	return &UserHandler{service: service, admins: middleware.Roles(model.RoleAdmin)}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	list := model.UserList{Users: make([]model.PublicUser, 0, len(users))}
	for _, u := range users {
		list.Users = append(list.Users, u.Public())
	}
	writeSuccess(w, http.StatusOK, list)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateUserRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Create(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user.Public())
}

// Get returns the caller's own record; admins may read any user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.Unauthorized("authentication required"))
		return
	}

	userID := chi.URLParam(r, "id")
	if userID != claims.Subject && !h.admins.Allows(claims) {
		writeError(w, r, apierror.Forbidden())
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateUserRequest
	if err := decodeJSON(w, r, &payload, false); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, user.Public())
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.Unauthorized("authentication required"))
		return
	}

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), claims.Subject); err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.MessageResponse{Message: "User deleted successfully"})
}
