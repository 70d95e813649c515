package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mindvault/internal/domain"
)

// ImageUpload is an uploaded file as received by the transport layer.
type ImageUpload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// sniffImage detects the content type from the first bytes of the body and
// returns a reader that still yields the whole file.
func sniffImage(up ImageUpload) (contentType, ext string, body io.Reader, err error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", "", nil, fmt.Errorf("%w: empty file", domain.ErrUnsupportedImage)
	}
	contentType = http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, contentType)
	}
	return contentType, ext, io.MultiReader(bytes.NewReader(head), up.Body), nil
}
