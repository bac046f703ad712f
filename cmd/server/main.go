package main

import (
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campuspass/internal/app"
	"campuspass/internal/config"
	"campuspass/internal/notify"
	"campuspass/internal/render"
	"campuspass/internal/server"
	"campuspass/internal/session"
	"campuspass/internal/storage"
	"campuspass/internal/store"
	"campuspass/internal/summarize"
	"campuspass/internal/util"
	"campuspass/pkg/auth"
	"campuspass/pkg/domain"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := newStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		sessions = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, sessionTTL)
	} else {
		sessions = session.NewJWTStore(cfg.JWTSecret, sessionTTL)
	}

	var notifier notify.Notifier
	if strings.TrimSpace(cfg.AMQPURL) != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("failed to connect notification broker: %v", err)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	} else {
		slog.Warn("no amqp url configured, notifications stay in-process")
		notifier = notify.NewMemoryNotifier()
	}

	var archive storage.Archiver
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archive, err = storage.NewMinioArchive(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init artifact archive: %v", err)
		}
	}

	renderer, err := render.NewRenderer(cfg.QRDir, cfg.PDFDir, cfg.VerifyBaseURL, archive)
	if err != nil {
		log.Fatalf("failed to init renderer: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:      st,
		Sessions:   sessions,
		Summarizer: newSummarizer(cfg),
		Notifier:   notifier,
		Renderer:   renderer,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	if err := seedHead(st, cfg); err != nil {
		log.Fatalf("failed to seed department head account: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		SubmitRateLimitPerMinute: cfg.SubmitRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      util.WithRequestLog(httpServer.Router()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("campuspass server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

func newStore(cfg config.FileConfig) (store.Store, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		slog.Warn("no databaseURL configured, requests are kept in memory")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}

func newSummarizer(cfg config.FileConfig) *summarize.Service {
	var gen summarize.Generator
	switch strings.ToLower(strings.TrimSpace(cfg.SummarizerProvider)) {
	case "ollama":
		gen = summarize.NewOllamaGenerator(cfg.SummarizerBaseURL, cfg.SummarizerModel)
	case "openai":
		gen = summarize.NewOpenAICompatGenerator(cfg.SummarizerBaseURL, cfg.SummarizerAPIKey, cfg.SummarizerModel)
	default:
		slog.Warn("no summarizer provider configured, using extractive fallback")
	}
	return summarize.NewService(gen, cfg.SummarizerTimeout())
}

// seedHead creates the department head account on first boot so approvals
// work out of the box. An existing account is left untouched.
func seedHead(st store.Store, cfg config.FileConfig) error {
	taken, err := st.HasRoll(cfg.HeadRoll)
	if err != nil {
		return err
	}
	if taken {
		return nil
	}
	hash, err := auth.HashPassword(cfg.HeadPassword)
	if err != nil {
		return err
	}
	if err := st.SaveUser(domain.User{
		ID:           util.NewID(),
		Roll:         cfg.HeadRoll,
		Name:         cfg.HeadName,
		PasswordHash: hash,
		Role:         domain.RoleDepartmentHead,
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}
	slog.Info("seeded department head account", "roll", cfg.HeadRoll)
	return nil
}
