package chat

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/pelusa-v/mailgram/internal/events"
)

// Attachment is a file picked for upload. Size may be negative when unknown.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ClassifyMIME maps a MIME type to a message kind by prefix.
func ClassifyMIME(contentType string) events.Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return events.KindImage
	case strings.HasPrefix(ct, "video/"):
		return events.KindVideo
	case strings.HasPrefix(ct, "audio/"):
		return events.KindAudio
	default:
		return events.KindDocument
	}
}

// UploadAttachment posts the file and, on success, sends its URL through the
// regular send path as a message of the file's kind. Upload failures are
// logged and returned; nothing is rendered for them. Without a target the
// file is not uploaded.
func (c *Controller) UploadAttachment(ctx context.Context, file Attachment) error {
	if c.Target().IsNone() {
		return ErrNoTarget
	}
	if file.Size == 0 || file.Body == nil {
		return ErrEmptyFile
	}
	if c.maxUpload > 0 && file.Size > c.maxUpload {
		return ErrFileTooLarge
	}

	kind := ClassifyMIME(file.ContentType)
	url, err := c.uploader.Upload(ctx, file.Name, file.ContentType, file.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("file", file.Name).Msg("upload failed")
		return errors.Wrap(err, "chat: upload")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(kind, strings.TrimSpace(url))
}
