package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"teamline/internal/domain"
	"teamline/internal/metrics"
)

// uploadChunk is the copy granularity; progress is reported after each
// chunk, giving discrete ascending steps.
const uploadChunk = 256 * 1024

// AttachmentService streams uploads to local storage and manages
// attachment metadata. It never creates messages: the caller appends a
// message with the returned attachment id after a successful upload, so
// "upload failed" stays distinguishable from "send failed" and a failed
// upload leaves no trace in the message log.
type AttachmentService struct {
	attachments domain.AttachmentRepository
	channels    domain.ChannelRepository
	uploadDir   string
	urlPrefix   string
	log         zerolog.Logger
}

func NewAttachmentService(
	attachments domain.AttachmentRepository,
	channels domain.ChannelRepository,
	uploadDir string,
	log zerolog.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachments: attachments,
		channels:    channels,
		uploadDir:   uploadDir,
		urlPrefix:   "/api/uploads/",
		log:         log.With().Str("component", "attachments").Logger(),
	}
}

var _ AttachmentCleaner = (*AttachmentService)(nil)

type UploadInput struct {
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Upload streams the body into the upload directory under a fresh
// storage key, reporting progress in discrete steps, then persists the
// attachment metadata. Any failure removes the partial file and
// surfaces as ErrUploadFailed with no store writes.
func (s *AttachmentService) Upload(ctx context.Context, channelID int64, in UploadInput, progress func(pct int)) (*domain.Attachment, error) {
	start := time.Now()

	ch, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}
	if ch == nil {
		return nil, fmt.Errorf("channel %d: %w", channelID, domain.ErrNotFound)
	}
	if progress == nil {
		progress = func(int) {}
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(in.Filename))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	key := uuid.NewString() + filepath.Ext(in.Filename)
	destPath := filepath.Join(s.uploadDir, key)

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", destPath, domain.ErrUploadFailed)
	}

	written, err := s.copyWithProgress(ctx, out, in.Body, in.Size, progress)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("write attachment: %v: %w", err, domain.ErrUploadFailed)
	}

	att := &domain.Attachment{
		StorageKey: key,
		URL:        s.urlPrefix + key,
		Filename:   in.Filename,
		MimeType:   mimeType,
		SizeBytes:  written,
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("persist attachment: %v: %w", err, domain.ErrUploadFailed)
	}

	progress(100)
	metrics.UploadBytes.Add(float64(written))
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	return att, nil
}

func (s *AttachmentService) copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress func(pct int)) (int64, error) {
	buf := make([]byte, uploadChunk)
	var written int64
	lastPct := -1
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if total > 0 {
				pct := int(written * 100 / total)
				if pct > 99 {
					pct = 99 // 100 is reserved for the metadata commit
				}
				if pct > lastPct {
					lastPct = pct
					progress(pct)
				}
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// Delete removes the attachment row and its stored bytes. Best-effort:
// the file removal happens even if the row is already gone.
func (s *AttachmentService) Delete(ctx context.Context, id int64) error {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get attachment: %w", err)
	}
	if att == nil {
		return nil
	}
	if err := s.attachments.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.uploadDir, att.StorageKey)); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("storage_key", att.StorageKey).Msg("attachment file removal failed")
	}
	return nil
}

// Get returns attachment metadata by id.
func (s *AttachmentService) Get(ctx context.Context, id int64) (*domain.Attachment, error) {
	att, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if att == nil {
		return nil, fmt.Errorf("attachment %d: %w", id, domain.ErrNotFound)
	}
	return att, nil
}
