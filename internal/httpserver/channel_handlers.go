package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"teamline/internal/service"
)

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// handleListChannels returns every channel visible to the caller,
// annotated with unread counts for the channel list badges.
func handleListChannels(channels *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		res, err := channels.ListForUser(r.Context(), user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleCreateChannel(channels *service.ChannelService) http.HandlerFunc {
	type createChannelRequest struct {
		ProjectID int64  `json:"project_id"`
		Name      string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		var req createChannelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.ProjectID <= 0 || req.Name == "" {
			http.Error(w, "project_id and name are required", http.StatusBadRequest)
			return
		}

		ch, err := channels.Create(r.Context(), req.ProjectID, req.Name, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ch)
	}
}

func handleGetChannel(channels *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		ch, err := channels.Get(r.Context(), channelID, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

func handleRenameChannel(channels *service.ChannelService) http.HandlerFunc {
	type renameChannelRequest struct {
		Name string `json:"name"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		var req renameChannelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		ch, err := channels.Rename(r.Context(), channelID, req.Name, user.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ch)
	}
}

func handleDeleteChannel(channels *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channelID, ok := parseIDParam(r, "channelID")
		if !ok {
			http.Error(w, "invalid channel id", http.StatusBadRequest)
			return
		}
		if err := channels.Delete(r.Context(), channelID, user.ID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
