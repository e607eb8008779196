package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"healthassist/internal/alert"
	"healthassist/internal/checkpoint"
	"healthassist/internal/config"
	"healthassist/internal/core"
	"healthassist/internal/db"
	httpserver "healthassist/internal/http"
	"healthassist/internal/llm"
	"healthassist/internal/logger"
	"healthassist/internal/specialist"
	"healthassist/internal/speech"
	"healthassist/internal/store"
)

// Temperatures of the helper models that are not configurable.
const (
	extractorTemperature  = 0
	translatorTemperature = 0.1
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	log := logger.New("healthassist")

	cfg, err := config.New()
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to load configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cfg.DataDir
	facts := store.NewFactStore(root)
	users := store.NewUserStore(root)
	tracking := store.NewTrackingStore(root)
	risk := store.NewRiskStore(root)
	alerts := store.NewAlertStore(root)
	threads := store.NewThreadStore(root)

	history, err := checkpoint.Open(ctx, cfg.ResolvedCheckpointPath())
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to open checkpoint store")
		return err
	}
	defer history.Close()

	client := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	reg := llm.NewRegistry(client)
	specialists, err := specialist.NewSet(reg, cfg.AgentModel, cfg.SpecialistTemperature)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to load specialists")
		return err
	}
	agent := reg.Get("orchestrator", cfg.AgentModel, cfg.AgentTemperature)

	dispatcher := alert.NewDispatcher(users, alerts, &alert.SMTPMailer{
		Host:     cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPEmail,
		Password: cfg.SMTPPassword,
	}, log)
	if cfg.DatabaseURL != "" {
		conn, err := openMirror(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error().Stack().Err(err).Msg("Failed to open alert mirror")
			return err
		}
		defer conn.Close()
		dispatcher.Mirror = db.NewMirror(conn, cfg.NotifyChannel)
	}

	insight := core.NewInsight(
		reg.Get("doc_extractor", cfg.AgentModel, extractorTemperature),
		reg.Get("translator", cfg.AgentModel, translatorTemperature),
		log,
	)

	chat := &core.ChatService{
		Orchestrator: core.NewOrchestrator(agent, specialists, cfg.MaxToolRounds, log),
		Assembler:    &core.Assembler{Facts: facts, Users: users, Tracking: tracking},
		History:      history,
		Facts:        facts,
		Risk:         risk,
		Threads:      threads,
		Alerts:       dispatcher,
		HistoryLimit: cfg.HistoryLimit,
		Log:          log,
	}

	sessions, err := newAuth(cfg, users, root)
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed to configure sessions")
		return err
	}

	srv := &httpserver.Server{
		Chat:           chat,
		Insight:        insight,
		Auth:           sessions,
		Speech:         speech.NewService(client, insight, cfg.TranscribeModel, cfg.SpeechModel, cfg.SpeechVoice),
		History:        history,
		Facts:          facts,
		Users:          users,
		Tracking:       tracking,
		Risk:           risk,
		Alerts:         alerts,
		Threads:        threads,
		Model:          cfg.AgentModel,
		MaxUploadBytes: cfg.MaxUploadBytes,
		CORSOrigins:    splitOrigins(cfg.CORSOrigins),
		Log:            log,
	}

	log.Info().
		Strs("specialists", specialists.Names()).
		Int("models", reg.Len()).
		Msg("Assistant wired")

	return serve(ctx, cfg, srv.Handler(), log)
}

func serve(ctx context.Context, cfg *config.Config, handler http.Handler, log zerolog.Logger) error {
	// No write timeout: chat and streaming calls wait on the model.
	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

// openMirror connects to Postgres and applies the alert schema.
func openMirror(ctx context.Context, dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return conn, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
