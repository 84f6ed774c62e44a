package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"teamline/internal/config"
	"teamline/internal/domain"
	"teamline/internal/httpserver"
	"teamline/internal/security"
	"teamline/internal/service"
	"teamline/internal/store/postgres"
	"teamline/internal/store/redisstore"
	"teamline/internal/store/sqlite"
	"teamline/internal/ws"
)

// @title           Teamline Messaging API
// @version         1.0
// @description     Channel messaging subsystem: messages, threads, typing presence, read cursors, attachments.

// @host            localhost:8000
// @BasePath        /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type repos struct {
	users       domain.UserRepository
	channels    domain.ChannelRepository
	messages    domain.MessageRepository
	typing      domain.TypingRepository
	cursors     domain.ReadCursorRepository
	attachments domain.AttachmentRepository
	members     domain.MembershipDirectory
}

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Debug {
		log = log.Level(zerolog.DebugLevel).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	var db *sql.DB
	var rs repos
	switch cfg.StoreBackend {
	case "postgres":
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		rs = repos{
			users:       postgres.NewUserRepo(db),
			channels:    postgres.NewChannelRepo(db),
			messages:    postgres.NewMessageRepo(db),
			typing:      postgres.NewTypingRepo(db),
			cursors:     postgres.NewReadCursorRepo(db),
			attachments: postgres.NewAttachmentRepo(db),
			members:     postgres.NewMembershipRepo(db),
		}
	default:
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		if err := sqlite.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		rs = repos{
			users:       sqlite.NewUserRepo(db),
			channels:    sqlite.NewChannelRepo(db),
			messages:    sqlite.NewMessageRepo(db),
			typing:      sqlite.NewTypingRepo(db),
			cursors:     sqlite.NewReadCursorRepo(db),
			attachments: sqlite.NewAttachmentRepo(db),
			members:     sqlite.NewMembershipRepo(db),
		}
	}
	defer db.Close()

	if cfg.TypingBackend == "redis" {
		ts, err := redisstore.Open(context.Background(), cfg.RedisURL, cfg.TypingTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer ts.Close()
		rs.typing = ts
	}

	tokenSvc := security.NewTokenService(cfg.JWTSecret, 24*time.Hour)
	hub := ws.NewHub(log)

	unreadSvc := service.NewUnreadService(rs.cursors, rs.messages, log)
	channelSvc := service.NewChannelService(rs.channels, rs.members, unreadSvc, log)
	attachmentSvc := service.NewAttachmentService(rs.attachments, rs.channels, cfg.UploadDir, log)
	messageSvc := service.NewMessageService(rs.channels, rs.messages, rs.attachments, rs.members, hub, attachmentSvc, log)
	typingSvc := service.NewTypingService(rs.typing, rs.users, hub, cfg.TypingTTL, log)

	router := httpserver.NewRouter(httpserver.Deps{
		Cfg:         cfg,
		Hub:         hub,
		Tokens:      tokenSvc,
		Users:       rs.users,
		Channels:    channelSvc,
		Messages:    messageSvc,
		Typing:      typingSvc,
		Unread:      unreadSvc,
		Attachments: attachmentSvc,
		Log:         log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr()).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
