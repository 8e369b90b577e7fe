package tui

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/pelusa-v/mailgram/internal/chat"
)

// OpenAttachment opens a local file for upload. The content type comes from
// the extension, or from sniffing the first bytes when the extension is
// unknown.
func OpenAttachment(path string) (chat.Attachment, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return chat.Attachment{}, nil, errors.Wrap(err, "tui: open attachment")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return chat.Attachment{}, nil, errors.Wrap(err, "tui: stat attachment")
	}
	if info.IsDir() {
		_ = f.Close()
		return chat.Attachment{}, nil, errors.Errorf("tui: %s is a directory", path)
	}

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		ct = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			_ = f.Close()
			return chat.Attachment{}, nil, errors.Wrap(err, "tui: rewind attachment")
		}
	}
	return chat.Attachment{
		Name:        filepath.Base(path),
		ContentType: ct,
		Size:        info.Size(),
		Body:        f,
	}, f.Close, nil
}
