package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"os"
	"strings"
	"testing"
)

func pngBase64(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestSaveBase64Image(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	name, err := s.SaveBase64Image(pngBase64(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Fatalf("expected .png filename, got %s", name)
	}
	if _, err := os.Stat(s.Path(name)); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
}

func TestSaveBase64ImageDataURLPrefix(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.SaveBase64Image("data:image/png;base64," + pngBase64(t)); err != nil {
		t.Fatalf("data-url prefixed payload must be accepted: %v", err)
	}
}

func TestSaveBase64ImageRejectsBadEncoding(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.SaveBase64Image("not!!base64@@"); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestSaveBase64ImageRejectsNonImage(t *testing.T) {
	s, _ := New(t.TempDir())
	payload := base64.StdEncoding.EncodeToString([]byte("plain text, not an image"))
	if _, err := s.SaveBase64Image(payload); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
}
