package upload

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrTooLarge = errors.New("upload too large")
	ErrNotImage = errors.New("upload is not an image")
)

type Stager struct {
	dir      string
	maxBytes int64
}

type Staged struct {
	Path string
	Name string
	MIME string
	Size int64
}

// NewStager creates dir if needed. maxBytes <= 0 disables the size limit.
func NewStager(dir string, maxBytes int64) (*Stager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Stager{dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes is the configured upload limit, 0 when unlimited.
func (s *Stager) MaxBytes() int64 {
	if s.maxBytes < 0 {
		return 0
	}
	return s.maxBytes
}

// Stage copies the uploaded file into the staging directory. The returned
// cleanup removes it and must be called on every path.
func (s *Stager) Stage(fh *multipart.FileHeader) (*Staged, func(), error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return nil, nil, ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	name := SanitizeFilename(fh.Filename)
	dst, err := os.CreateTemp(s.dir, "*-"+name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	path := dst.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove staged upload", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	var r io.Reader = src
	if s.maxBytes > 0 {
		r = io.LimitReader(src, s.maxBytes+1)
	}
	n, err := io.Copy(dst, r)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to write staging file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		cleanup()
		return nil, nil, ErrTooLarge
	}

	mime, err := mimetype.DetectFile(path)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to detect content type: %w", err)
	}
	if !strings.HasPrefix(mime.String(), "image/") {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotImage, mime.String())
	}

	return &Staged{Path: path, Name: name, MIME: mime.String(), Size: n}, cleanup, nil
}

// Decode reads the staged file with whichever registered decoder matches.
func Decode(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

const maxNameLen = 100

// SanitizeFilename keeps only the base name, joins whitespace with
// underscores and drops anything outside [A-Za-z0-9_.-]. Long names are cut to
// maxNameLen bytes, keeping a short extension.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "\\", "/")
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	filename = strings.Join(strings.Fields(filename), "_")
	filename = unsafeChars.ReplaceAllString(filename, "")
	filename = strings.Trim(filename, "._")
	if filename == "" {
		return "upload"
	}
	if len(filename) > maxNameLen {
		ext := filepath.Ext(filename)
		if len(ext) > maxNameLen/4 {
			ext = ""
		}
		filename = filename[:maxNameLen-len(ext)] + ext
	}
	return filename
}
