// Package main is the A.I Desk server entrypoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aidesk-io/aidesk/internal/api"
	"github.com/aidesk-io/aidesk/internal/assistant"
	"github.com/aidesk-io/aidesk/internal/config"
	"github.com/aidesk-io/aidesk/internal/database"
	"github.com/aidesk-io/aidesk/internal/lifecycle"
	"github.com/aidesk-io/aidesk/internal/relay"
	"github.com/aidesk-io/aidesk/internal/repository"
	"github.com/aidesk-io/aidesk/internal/runner"
	"github.com/aidesk-io/aidesk/internal/runner/tasks"
	"github.com/aidesk-io/aidesk/internal/service"
)

func main() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "aidesk",
		Short: "A.I Desk support ticketing server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load()
			return err
		},
	}

	root.AddCommand(serveCmd(), migrateCmd(), createTechnicianCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			logger := log.New(log.Writer(), "[AIDESK] ", log.LstdFlags)

			db, err := database.Connect(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			tickets := repository.NewTicketRepository(db)
			messages := repository.NewMessageRepository(db)
			feedbacks := repository.NewFeedbackRepository(db)
			technicians := repository.NewTechnicianRepository(db)

			attempts := newAttemptStore(cfg, logger)
			responder := newResponder(cfg, attempts, logger)

			hub := relay.NewHub()
			coordinator := lifecycle.NewCoordinator(tickets, messages, responder, hub)
			auth := service.NewAuthService(technicians, cfg.Auth.JWTSecret,
				service.WithTokenTTL(cfg.Auth.TokenTTL))

			jobs := runner.New()
			if err := jobs.Register(tasks.NewAttemptCleanupTask(tickets, attempts)); err != nil {
				return fmt.Errorf("register cleanup task: %w", err)
			}
			jobs.Start()
			defer jobs.Stop()

			server := api.NewServer(coordinator, tickets, messages, feedbacks, auth, hub)
			httpServer := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: server.Router(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Printf("listening on %s", cfg.Server.Addr)
				errCh <- httpServer.ListenAndServe()
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-quit:
				logger.Printf("received %s, shutting down", sig)
				ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := httpServer.Shutdown(ctx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			db, err := database.Connect(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			return database.Migrate(db)
		},
	}
}

func createTechnicianCmd() *cobra.Command {
	var username, password, name, email string

	cmd := &cobra.Command{
		Use:   "create-technician",
		Short: "Create a technician account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			db, err := database.Connect(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			auth := service.NewAuthService(repository.NewTechnicianRepository(db), cfg.Auth.JWTSecret)
			tech, err := auth.Register(cmd.Context(), username, password, name, email)
			if err != nil {
				return err
			}
			fmt.Printf("created technician %s (%s)\n", tech.Username, tech.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login username")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "contact email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// newAttemptStore prefers Redis so escalation counters survive restarts
// in multi-instance deployments; without Redis configured the counters
// live in memory.
func newAttemptStore(cfg *config.Config, logger *log.Logger) assistant.AttemptStore {
	if cfg.Redis.Addr == "" {
		return assistant.NewMemoryAttemptStore()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	logger.Printf("attempt counters backed by redis at %s", cfg.Redis.Addr)
	return assistant.NewRedisAttemptStore(client)
}

// newResponder uses the LLM provider when an API key is configured and
// the built-in rule table otherwise.
func newResponder(cfg *config.Config, attempts assistant.AttemptStore, logger *log.Logger) assistant.Responder {
	if cfg.Assistant.APIKey == "" {
		logger.Printf("assistant running on built-in rules (no API key configured)")
		return assistant.NewRuleResponder(attempts,
			assistant.WithMaxAttempts(cfg.Assistant.MaxAttempts))
	}

	provider := assistant.NewOpenAI(cfg.Assistant.APIKey,
		assistant.WithBaseURL(cfg.Assistant.BaseURL),
		assistant.WithModel(cfg.Assistant.Model))
	logger.Printf("assistant running on provider %s", provider.Name())
	return assistant.NewProviderResponder(provider, attempts,
		assistant.WithProviderMaxAttempts(cfg.Assistant.MaxAttempts))
}
