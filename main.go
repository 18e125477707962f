package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clariox/config"
	"clariox/config/database"
	"clariox/internal/ai"
	"clariox/internal/editor/autosave"
	"clariox/pkg/logger"
	"clariox/router"
	"clariox/socket"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables from OS")
	}

	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	logger.Sugar.Info("Successfully connected to the database")

	if err := database.Migrate(ctx, db); err != nil {
		logger.Sugar.Fatalf("Failed to migrate database: %v", err)
	}

	gen := newGenerator(ctx, cfg.AI)

	posts := router.NewPostService(db)
	hub := socket.NewHub(posts,
		autosave.WithDebounce(cfg.AutoSave.Debounce),
		autosave.WithSavedDisplay(cfg.AutoSave.SavedDisplay),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(db, posts, hub, cfg, gen),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Sugar.Infof("Clariox backend listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Sugar.Errorf("Server stopped: %v", err)
	}

	// Open editor rooms flush their last edits on shutdown.
	hub.Wait()
	logger.Sugar.Info("Shutdown complete")
}

func newGenerator(ctx context.Context, cfg config.AIConfig) ai.Generator {
	if (cfg.Provider == "" || cfg.Provider == "groq") && cfg.GroqAPIKey == "" {
		logger.Sugar.Warn("GROQ_API_KEY is not set, AI generation disabled")
		return nil
	}
	gen, err := ai.New(ctx, cfg)
	if err != nil {
		logger.Sugar.Warnf("AI generation disabled: %v", err)
		return nil
	}
	return gen
}
