package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"teamline/internal/service"
)

// handleSetTyping is the REST binding for typing presence; clients
// without a live socket can still publish their state. The websocket path
// debounces keystrokes before reaching the same service.
func handleSetTyping(channels *service.ChannelService, typing *service.TypingService) http.HandlerFunc {
	type setTypingRequest struct {
		IsTyping bool `json:"is_typing"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		if _, err := channels.Get(r.Context(), channelID, user.ID); err != nil {
			writeError(w, err)
			return
		}
		var req setTypingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		typing.SetTyping(r.Context(), channelID, user.ID, req.IsTyping)
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListTyping returns who is currently typing in the channel,
// excluding the caller.
func handleListTyping(channels *service.ChannelService, typing *service.TypingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		if _, err := channels.Get(r.Context(), channelID, user.ID); err != nil {
			writeError(w, err)
			return
		}

		users, err := typing.ListTypingUsers(r.Context(), channelID, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"users":       users,
			"ttl_seconds": int(typing.TTL().Seconds()),
		})
	}
}

// handleMarkRead advances the caller's read cursor in a channel.
// Older message ids are accepted and ignored.
func handleMarkRead(unread *service.UnreadService) http.HandlerFunc {
	type markReadRequest struct {
		MessageID int64 `json:"message_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		var req markReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.MessageID <= 0 {
			http.Error(w, "message_id is required", http.StatusBadRequest)
			return
		}

		if err := unread.MarkRead(r.Context(), channelID, user.ID, req.MessageID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleUnreadCounts returns per-channel unread counts for
// ?channel_ids=1,2,3.
func handleUnreadCounts(unread *service.UnreadService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		raw := strings.TrimSpace(r.URL.Query().Get("channel_ids"))
		if raw == "" {
			http.Error(w, "channel_ids is required", http.StatusBadRequest)
			return
		}

		parts := strings.Split(raw, ",")
		channelIDs := make([]int64, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid channel_ids", http.StatusBadRequest)
				return
			}
			channelIDs = append(channelIDs, id)
		}

		counts, err := unread.UnreadCounts(r.Context(), user.ID, channelIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}
