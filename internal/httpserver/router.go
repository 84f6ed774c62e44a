package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "teamline/docs"
	"teamline/internal/config"
	"teamline/internal/domain"
	"teamline/internal/security"
	"teamline/internal/service"
	"teamline/internal/ws"
)

// Deps groups everything the router needs. Services are wired in main so
// both store backends share one construction path.
type Deps struct {
	Cfg         *config.Config
	Hub         *ws.Hub
	Tokens      *security.TokenService
	Users       domain.UserRepository
	Channels    *service.ChannelService
	Messages    *service.MessageService
	Typing      *service.TypingService
	Unread      *service.UnreadService
	Attachments *service.AttachmentService
	Log         zerolog.Logger
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Teamline Messaging API","version":"1.0.0","docs":"/docs"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(d.Tokens, d.Users, d.Log))

		r.Route("/channels", func(r chi.Router) {
			r.Get("/", handleListChannels(d.Channels))
			r.Post("/", handleCreateChannel(d.Channels))
			r.Get("/{channelID}", handleGetChannel(d.Channels))
			r.Patch("/{channelID}", handleRenameChannel(d.Channels))
			r.Delete("/{channelID}", handleDeleteChannel(d.Channels))

			r.Get("/{channelID}/messages", handleListMessages(d.Channels, d.Messages, d.Cfg.MessageWindow))
			r.Get("/{channelID}/messages/grouped", handleListGroupedMessages(d.Channels, d.Messages, d.Cfg.MessageWindow))
			r.Post("/{channelID}/messages", handleCreateMessage(d.Messages))

			r.Post("/{channelID}/typing", handleSetTyping(d.Channels, d.Typing))
			r.Get("/{channelID}/typing", handleListTyping(d.Channels, d.Typing))
			r.Post("/{channelID}/read", handleMarkRead(d.Unread))

			r.Post("/{channelID}/attachments", handleUploadAttachment(d.Channels, d.Attachments, d.Cfg.MaxUploadMB, d.Log))
		})

		r.Route("/messages", func(r chi.Router) {
			r.Patch("/{messageID}", handleEditMessage(d.Messages))
			r.Delete("/{messageID}", handleDeleteMessage(d.Messages))
			r.Get("/{messageID}/thread", handleGetThread(d.Messages))
		})

		r.Get("/unread", handleUnreadCounts(d.Unread))

		r.Get("/uploads/*", handleServeUpload(d.Cfg.UploadDir))
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(ws.HandlerConfig{
		Hub:            d.Hub,
		Tokens:         d.Tokens,
		Users:          d.Users,
		Channels:       d.Channels,
		Messages:       d.Messages,
		Typing:         d.Typing,
		Unread:         d.Unread,
		AllowedOrigins: d.Cfg.CORSOrigins,
		MessageWindow:  d.Cfg.MessageWindow,
		TypingDebounce: d.Cfg.TypingDebounce,
		Log:            d.Log,
	}))

	return r
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
