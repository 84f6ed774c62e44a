package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"teamline/internal/presenter"
	"teamline/internal/service"
)

// handleListMessages returns the most recent window of top-level
// messages in ascending order. ?limit overrides the default window size,
// capped at 200.
func handleListMessages(channels *service.ChannelService, messages *service.MessageService, defaultWindow int) http.HandlerFunc {
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

		limit := defaultWindow
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			if n > 200 {
				n = 200
			}
			limit = n
		}

		msgs, err := messages.ListRecent(r.Context(), channelID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// handleListGroupedMessages returns the same window pre-grouped into
// consecutive same-author same-minute runs, ready for rendering.
func handleListGroupedMessages(channels *service.ChannelService, messages *service.MessageService, defaultWindow int) http.HandlerFunc {
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

		msgs, err := messages.ListRecent(r.Context(), channelID, defaultWindow)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, presenter.Group(msgs))
	}
}

func handleCreateMessage(messages *service.MessageService) http.HandlerFunc {
	type createMessageRequest struct {
		Content      string `json:"content"`
		AttachmentID *int64 `json:"attachment_id,omitempty"`
		ParentID     *int64 `json:"parent_id,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		var req createMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		msg, err := messages.Append(r.Context(), service.AppendInput{
			ChannelID:    channelID,
			AuthorID:     user.ID,
			Content:      req.Content,
			AttachmentID: req.AttachmentID,
			ParentID:     req.ParentID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

func handleEditMessage(messages *service.MessageService) http.HandlerFunc {
	type editMessageRequest struct {
		Content string `json:"content"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		messageID, ok := parseIDParam(r, "messageID")
		if !ok {
			http.Error(w, "invalid message id", http.StatusBadRequest)
			return
		}
		var req editMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		msg, err := messages.Edit(r.Context(), messageID, user.ID, req.Content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessage(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		messageID, ok := parseIDParam(r, "messageID")
		if !ok {
			http.Error(w, "invalid message id", http.StatusBadRequest)
			return
		}
		if err := messages.Delete(r.Context(), messageID, user.ID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGetThread returns a thread's replies plus the live reply
// count.
func handleGetThread(messages *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, ok := parseIDParam(r, "messageID")
		if !ok {
			http.Error(w, "invalid message id", http.StatusBadRequest)
			return
		}

		replies, err := messages.ListThread(r.Context(), messageID)
		if err != nil {
			writeError(w, err)
			return
		}
		count, err := messages.CountThreadReplies(r.Context(), messageID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"parent_id":   messageID,
			"reply_count": count,
			"replies":     replies,
		})
	}
}
