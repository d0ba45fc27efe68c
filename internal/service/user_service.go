package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-auth-service/internal/logger"
	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

const minPasswordLength = 8

type UserService struct {
	users  UserStore
	hasher PasswordHasher
	now    func() time.Time
}

func NewUserService(users UserStore, hasher PasswordHasher) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a self-service account with the default role.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	return s.create(ctx, req.Name, req.Email, req.Password, []string{model.RoleUser})
}

// Create is the administrative variant of Register with explicit roles.
func (s *UserService) Create(ctx context.Context, req model.CreateUserRequest) (model.User, error) {
	roles := req.Roles
	if len(roles) == 0 {
		roles = []string{model.RoleUser}
	}
	return s.create(ctx, req.Name, req.Email, req.Password, roles)
}

func (s *UserService) Get(ctx context.Context, id string) (model.User, error) {
	if err := validateID(id); err != nil {
		return model.User{}, err
	}

	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.User{}, apierror.NotFound("user not found", id)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Update applies the non-nil fields of req. At least one field is required.
func (s *UserService) Update(ctx context.Context, id string, req model.UpdateUserRequest) (model.User, error) {
	if err := validateID(id); err != nil {
		return model.User{}, err
	}

	var update model.UserUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return model.User{}, apierror.BadRequest("name cannot be empty", "name")
		}
		update.Name = &name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return model.User{}, err
		}
		update.Email = &email
	}
	if req.Password != nil {
		hash, err := s.hashPassword(*req.Password)
		if err != nil {
			return model.User{}, err
		}
		update.PasswordHash = &hash
	}
	if update.Empty() {
		return model.User{}, apierror.BadRequest("nothing to update", "")
	}

	user, err := s.users.Update(ctx, id, update)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return model.User{}, apierror.NotFound("user not found", id)
	case errors.Is(err, model.ErrUserAlreadyExists):
		return model.User{}, apierror.AlreadyExists("email already registered", "email")
	case err != nil:
		return model.User{}, fmt.Errorf("update user: %w", err)
	}

	logger.From(ctx).Info("user updated", "user_id", id)
	return user, nil
}

// Delete removes the user. actorID is the caller, who cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id string, actorID string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if id == actorID {
		return apierror.BadRequest("cannot delete your own account", "id")
	}

	err := s.users.Delete(ctx, id)
	if errors.Is(err, model.ErrUserNotFound) {
		return apierror.NotFound("user not found", id)
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	logger.From(ctx).Info("user deleted", "user_id", id)
	return nil
}

func (s *UserService) create(ctx context.Context, name string, email string, password string, roles []string) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, apierror.BadRequest("name is required", "name")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return model.User{}, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return model.User{}, err
	}

	now := s.now()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, model.ErrUserAlreadyExists) {
		return model.User{}, apierror.AlreadyExists("email already registered", "email")
	}
	if err != nil {
		return model.User{}, fmt.Errorf("create user: %w", err)
	}

	logger.From(ctx).Info("user created", "user_id", user.ID, "roles", roles)
	return s.users.FindByID(ctx, user.ID)
}

func (s *UserService) hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", apierror.BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength), "password")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func normalizeEmail(raw string) (string, error) {
	email := model.CanonicalEmail(raw)
	if email == "" {
		return "", apierror.BadRequest("email is required", "email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apierror.BadRequest("invalid email address", "email")
	}
	return email, nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apierror.BadRequest("invalid user id", "id")
	}
	return nil
}
