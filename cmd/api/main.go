package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/analogy"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/generation"
	historyrepo "github.com/ovaphlow/pitchfork/service-analogy-go/internal/history/repo"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-analogy-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-analogy-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/telemetry"
	"github.com/ovaphlow/pitchfork/service-analogy-go/pkg/utilities"
)

const serviceName = "service-analogy-go"

type stores struct {
	users   userrepo.Repository
	history historyrepo.Repository
	close   func() error
}

// openStores picks the storage backend from STORAGE_BACKEND (postgres or memory).
func openStores(ctx context.Context, sugar *zap.SugaredLogger) (stores, error) {
	if os.Getenv("STORAGE_BACKEND") == "memory" {
		sugar.Warn("using in-memory storage; data is lost on restart")
		return stores{
			users:   userrepo.NewMemoryRepo(),
			history: historyrepo.NewMemoryRepo(),
			close:   func() error { return nil },
		}, nil
	}

	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		return stores{}, fmt.Errorf("db connect: %w", err)
	}
	if os.Getenv("DATABASE_SKIP_MIGRATE") != "1" {
		if err := database.Migrate(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return stores{}, err
		}
	}
	db := sqlx.NewDb(sqlDB, cfg.Driver)
	return stores{
		users:   userrepo.NewUserRepo(db),
		history: historyrepo.NewHistoryRepo(db),
		close:   db.Close,
	}, nil
}

func durationEnv(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func main() {
	// best-effort: real environment wins when no .env exists
	_ = godotenv.Load()

	logCfg := utilities.ConfigFromEnv()
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infof("starting %s", serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, serviceName, sugar)

	st, err := openStores(ctx, sugar)
	if err != nil {
		sugar.Fatalf("storage: %v", err)
	}
	defer st.close()

	authCfg, err := auth.ConfigFromEnv(logCfg.Dev)
	if err != nil {
		sugar.Fatalf("auth config: %v", err)
	}
	tokens, err := auth.NewTokenService(authCfg)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}

	genCfg := generation.ConfigFromEnv()
	if genCfg.APIKey == "" {
		sugar.Warn("OPENAI_API_KEY is not set; generation requests will fail")
	}
	engine := generation.NewEngine(generation.NewOpenAIProvider(genCfg), genCfg, sugar)

	users := user.NewUserService(st.users, user.BcryptHasher{Cost: 12}, user.PolicyFromEnv())
	analogies := analogy.NewService(engine, st.history, analogy.ConfigFromEnv(), sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:         sugar,
		Users:          user.NewHandler(users, tokens, sugar),
		Analogies:      analogy.NewHandler(analogies, sugar),
		Tokens:         tokens,
		AllowedOrigins: router.AllowedOriginsFromEnv(),
	})

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = "0.0.0.0:8431"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           telemetry.Handler(handler, serviceName),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// generation can take several provider attempts
		WriteTimeout: durationEnv("HTTP_WRITE_TIMEOUT", 2*time.Minute),
		IdleTimeout:  time.Minute,
	}

	go func() {
		sugar.Infow("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	if err := shutdownTracing(doneCtx); err != nil {
		sugar.Warnf("tracing shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
