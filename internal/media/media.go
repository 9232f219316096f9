// Package media validates and stores uploaded media files.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"github.com/suPer8Hu/transcriber/internal/common"
)

var (
	AudioExtensions = []string{"mp3", "wav", "m4a", "flac", "ogg", "aac"}
	VideoExtensions = []string{"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm", "ogv"}

	ErrUnsupportedType = errors.New("file type not allowed")
)

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Allowed reports whether name carries an accepted audio or video extension.
func Allowed(name string) bool {
	ext := Extension(name)
	return ext != "" && (lo.Contains(AudioExtensions, ext) || lo.Contains(VideoExtensions, ext))
}

// SupportedFormats returns every accepted extension, sorted.
func SupportedFormats() []string {
	all := lo.Union(AudioExtensions, VideoExtensions)
	sort.Strings(all)
	return all
}

// UnsupportedMessage is the client-facing rejection text.
func UnsupportedMessage() string {
	return "File type not allowed. Supported formats: " + strings.Join(SupportedFormats(), ", ")
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename strips directories and anything outside [A-Za-z0-9_.-]
// from a client supplied file name.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}

// Save copies r into dir under a unique name derived from originalName and
// returns the absolute path. A partial file is removed on failure.
func Save(dir, originalName string, r io.Reader) (string, error) {
	if !Allowed(originalName) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, originalName)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(absDir, common.NewHexID()+"_"+SanitizeFilename(originalName))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// DetectType sniffs the MIME type of a stored file. Unknown content yields
// application/octet-stream.
func DetectType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mt.String()
}
