// seed creates the initial Admin account. It runs the migrations first, so it can be
// pointed at an empty database.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"go-auth-service/pkg/apierror"
	"go-auth-service/internal/database"
	"go-auth-service/internal/logger"
	"go-auth-service/internal/model"
	"go-auth-service/internal/password"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var (
		databaseURL string
		email       string
		pw          string
		name        string
		logLevel    string
	)

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flagSet.StringVar(&email, "email", "admin@example.com", "admin email")
	flagSet.StringVar(&pw, "password", "admin123", "admin password")
	flagSet.StringVar(&name, "name", "Administrator", "admin display name")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if databaseURL == "" {
		return errors.New("--database-url or DATABASE_URL is required")
	}

	slog.SetDefault(logger.New(os.Stderr, logger.FormatPretty, logLevel))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, databaseURL, 2, 0)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	hasher, err := password.NewHasher(password.DefaultParams)
	if err != nil {
		return err
	}
	users := service.NewUserService(repository.NewUserRepository(db.Pool), hasher)

	user, err := users.Create(ctx, model.CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: pw,
		Roles:    []string{model.RoleAdmin},
	})
	if err != nil {
		var apiErr *apierror.APIError
		if errors.As(err, &apiErr) && apiErr.Code == apierror.CodeAlreadyExists {
			slog.Info("admin already exists", "email", model.CanonicalEmail(email))
			return nil
		}
		return fmt.Errorf("create admin: %w", err)
	}

	slog.Info("admin created", "id", user.ID, "email", user.Email)
	return nil
}
