package httpserver

import (
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"

	"teamline/internal/service"
)

// handleUploadAttachment accepts a multipart upload, streams it to
// storage and returns the attachment metadata. The client then sends a
// message referencing attachment_id; a failed upload never touches the
// message log.
func handleUploadAttachment(channels *service.ChannelService, attachments *service.AttachmentService, maxUploadMB int, log zerolog.Logger) http.HandlerFunc {
	maxBytes := int64(maxUploadMB) << 20
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

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "multipart field 'file' is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		lastPct := -1
		att, err := attachments.Upload(r.Context(), channelID, service.UploadInput{
			Filename: filepath.Base(header.Filename),
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Body:     file,
		}, func(pct int) {
			// Progress over plain HTTP has nowhere to go; keep a debug
			// trace at coarse steps so slow uploads are visible in logs.
			if pct >= lastPct+25 || pct == 100 {
				lastPct = pct
				log.Debug().Int64("channel_id", channelID).Int("pct", pct).Msg("upload progress")
			}
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, att)
	}
}

// handleServeUpload serves stored attachment bytes. The storage key
// is reduced to its base name so the path never escapes the upload dir.
func handleServeUpload(uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := filepath.Base(r.URL.Path)
		if filename == "." || filename == "/" {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(uploadDir, filename))
	}
}
