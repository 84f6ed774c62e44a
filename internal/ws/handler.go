package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"teamline/internal/domain"
	"teamline/internal/metrics"
	"teamline/internal/security"
	"teamline/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// HandlerConfig groups everything the ws endpoint needs.
type HandlerConfig struct {
	Hub            *Hub
	Tokens         *security.TokenService
	Users          domain.UserRepository
	Channels       *service.ChannelService
	Messages       *service.MessageService
	Typing         *service.TypingService
	Unread         *service.UnreadService
	AllowedOrigins []string
	MessageWindow  int
	TypingDebounce time.Duration
	Log            zerolog.Logger
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or
// Sec-WebSocket-Protocol), then dispatches client events:
//   - select_channel  -> switch subscription + async initial window
//   - send_message    -> append & broadcast (clears typing)
//   - edit_message    -> author-guarded edit + broadcast
//   - delete_message  -> author-guarded delete + broadcast
//   - typing          -> debounced presence write
//   - mark_read       -> advance read cursor (best-effort)
func MakeHandler(cfg HandlerConfig) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(cfg.AllowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}
	log := cfg.Log.With().Str("component", "ws").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := cfg.Tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		user := security.UserFromClaims(claims)
		if user == nil {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		// Keep the directory mirror current so other clients can render
		// this user's messages and typing indicator.
		if err := cfg.Users.Upsert(ctx, user); err != nil {
			log.Warn().Err(err).Int64("user_id", user.ID).Msg("directory upsert failed")
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		metrics.WSConnections.Inc()
		defer metrics.WSConnections.Dec()

		session := NewSession(conn, user, cfg.Hub, cfg.Messages, cfg.Typing, cfg.Unread, cfg.Channels, cfg.MessageWindow, cfg.TypingDebounce, log)
		defer session.Close()

		// Flood guard; typing keystrokes are already debounced client
		// side but nothing stops a misbehaving client from spamming.
		limiter := rate.NewLimiter(rate.Limit(50), 100)

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			if !limiter.Allow() {
				session.sendError("too many events")
				continue
			}
			evType, _ := payload["type"].(string)
			switch evType {

			case "select_channel":
				chIDf, _ := payload["channel_id"].(float64)
				if chIDf == 0 {
					session.sendError("select_channel requires channel_id")
					continue
				}
				session.SelectChannel(int64(chIDf))

			case "send_message":
				chIDf, _ := payload["channel_id"].(float64)
				content, _ := payload["content"].(string)
				if chIDf == 0 {
					session.sendError("send_message requires channel_id")
					continue
				}
				in := service.AppendInput{
					ChannelID: int64(chIDf),
					AuthorID:  user.ID,
					Content:   content,
				}
				if attIDf, ok := payload["attachment_id"].(float64); ok && attIDf != 0 {
					attID := int64(attIDf)
					in.AttachmentID = &attID
				}
				if parentIDf, ok := payload["parent_id"].(float64); ok && parentIDf != 0 {
					parentID := int64(parentIDf)
					in.ParentID = &parentID
				}
				session.StopTyping()
				if _, err := cfg.Messages.Append(ctx, in); err != nil {
					log.Debug().Err(err).Int64("user_id", user.ID).Msg("send_message rejected")
					session.sendError(err.Error())
				}

			case "edit_message":
				msgIDf, _ := payload["message_id"].(float64)
				content, _ := payload["content"].(string)
				if msgIDf == 0 {
					continue
				}
				if _, err := cfg.Messages.Edit(ctx, int64(msgIDf), user.ID, content); err != nil {
					session.sendError(err.Error())
				}

			case "delete_message":
				msgIDf, _ := payload["message_id"].(float64)
				if msgIDf == 0 {
					continue
				}
				if err := cfg.Messages.Delete(ctx, int64(msgIDf), user.ID); err != nil {
					session.sendError(err.Error())
				}

			case "typing":
				isTyping, _ := payload["is_typing"].(bool)
				if isTyping {
					session.Keystroke()
				} else {
					session.StopTyping()
				}

			case "mark_read":
				chIDf, _ := payload["channel_id"].(float64)
				msgIDf, _ := payload["message_id"].(float64)
				if chIDf == 0 || msgIDf == 0 {
					continue
				}
				// Best-effort; a failed cursor write just means the badge
				// catches up on the next mark.
				if err := cfg.Unread.MarkRead(ctx, int64(chIDf), user.ID, int64(msgIDf)); err != nil {
					log.Debug().Err(err).Int64("user_id", user.ID).Msg("mark_read failed")
				}

			default:
				log.Debug().Str("event", evType).Int64("user_id", user.ID).Msg("unknown event type")
			}
		}
	}
}
