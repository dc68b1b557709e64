// Package storage is the stored-file collaborator: given base64 image data,
// produce an opaque stored filename.
package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidEncoding  = errors.New("invalid base64 image data")
	ErrUnsupportedImage = errors.New("data is not a supported image format")
)

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveBase64Image decodes a base64 payload (with or without a data-URL
// prefix), verifies it is a jpeg/png/gif by sniffing the content, and writes
// it under a fresh UUID filename. The content is trusted over any declared
// content type.
func (s *Store) SaveBase64Image(data string) (string, error) {
	if idx := strings.IndexByte(data, ','); idx >= 0 {
		data = data[idx+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", ErrInvalidEncoding
	}

	mime := http.DetectContentType(raw)
	ext, ok := extensionFor(mime)
	if !ok {
		return "", fmt.Errorf("%w: detected %s", ErrUnsupportedImage, mime)
	}

	name := uuid.NewString() + "." + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), raw, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

// Path resolves a stored filename back to its on-disk location.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func extensionFor(mime string) (string, bool) {
	switch mime {
	case "image/jpeg":
		return "jpg", true
	case "image/png":
		return "png", true
	case "image/gif":
		return "gif", true
	}
	return "", false
}
