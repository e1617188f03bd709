package upload

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"notivate/internal/logger"

	"github.com/rs/zerolog"
)

// MaxImageBytes caps accepted uploads at 10 MiB.
const MaxImageBytes = 10 << 20

var (
	// ErrTooLarge is returned for payloads over MaxImageBytes.
	ErrTooLarge = errors.New("image exceeds the 10MB size limit")
	// ErrUnsupportedType is returned for extensions outside the image allowlist.
	ErrUnsupportedType = errors.New("only image files are allowed (JPG, PNG, WEBP, HEIC, GIF)")
	// ErrEmptyImage is returned when the payload has no bytes.
	ErrEmptyImage = errors.New("uploaded image is empty")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
	".gif":  true,
}

// Staging owns the on-disk lifecycle of uploaded images between request
// receipt and guaranteed disposal.
type Staging struct {
	dir string
	log zerolog.Logger
}

// NewStaging prepares the staging directory.
func NewStaging(dir string) (*Staging, error) {
	if dir == "" {
		dir = filepath.Join("data", "staging")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staging{dir: dir, log: logger.WithComponent("staging")}, nil
}

// Dir reports the staging directory path.
func (s *Staging) Dir() string {
	return s.dir
}

// Stash validates and writes one uploaded image to the staging
// directory under a collision-resistant name. The caller owns the
// returned image and must call Remove when the request finishes.
func (s *Staging) Stash(src io.Reader, originalName string) (*StagedImage, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if !allowedExtensions[ext] {
		return nil, ErrUnsupportedType
	}

	name, err := uniqueName(ext)
	if err != nil {
		return nil, err
	}
	destPath := filepath.Join(s.dir, name)

	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	// Copy at most one byte over the limit so oversize is detectable.
	written, err := io.Copy(dst, io.LimitReader(src, MaxImageBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if written > MaxImageBytes {
		_ = os.Remove(destPath)
		return nil, ErrTooLarge
	}
	if written == 0 {
		_ = os.Remove(destPath)
		return nil, ErrEmptyImage
	}

	return &StagedImage{
		Path:         destPath,
		OriginalName: filepath.Base(originalName),
		Size:         written,
	}, nil
}

// StagedImage is one uploaded image held on disk for the duration of a
// single request.
type StagedImage struct {
	Path         string
	OriginalName string
	Size         int64

	mu      sync.Mutex
	removed bool
}

// Bytes reads the staged payload.
func (img *StagedImage) Bytes() ([]byte, error) {
	return os.ReadFile(img.Path)
}

// Remove disposes the underlying file. Safe to call more than once;
// only the first call touches the filesystem.
func (img *StagedImage) Remove() error {
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.removed {
		return nil
	}
	img.removed = true
	if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

// Removed reports whether disposal already happened.
func (img *StagedImage) Removed() bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	return img.removed
}

func uniqueName(ext string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate staged name: %w", err)
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), hex.EncodeToString(buf), ext), nil
}
