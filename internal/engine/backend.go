// Package engine defines the transcription backend contract and the two
// backends the service ships with: the autosub CLI and a whisper HTTP server.
package engine

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
)

const (
	NameAutosub = "autosub"
	NameWhisper = "whisper"
)

var (
	// ErrCancelled is returned by a backend when the transcription was aborted
	// before producing output.
	ErrCancelled = errors.New("transcription was cancelled")

	ErrUnknownBackend = errors.New("unknown transcription engine")
)

// Request describes one transcription run.
type Request struct {
	SourcePath string
	Language   string
	Model      string
	OutputDir  string
}

// Result holds the artifact paths a backend claims to have written.
type Result struct {
	SubtitlePath string
	TextPath     string
}

// ProgressSink receives coarse progress updates while a backend runs.
// Implementations must be safe for concurrent use.
type ProgressSink interface {
	Report(percent int, phase string)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(percent int, phase string)

func (f ProgressFunc) Report(percent int, phase string) { f(percent, phase) }

type nopSink struct{}

func (nopSink) Report(int, string) {}

func sinkOrNop(s ProgressSink) ProgressSink {
	if s == nil {
		return nopSink{}
	}
	return s
}

// Backend turns a media file into subtitle and plain-text files.
type Backend interface {
	Name() string
	Transcribe(ctx context.Context, req Request, sink ProgressSink) (Result, error)
}

// OutputPaths returns the subtitle and text paths for a source file inside outputDir.
func OutputPaths(sourcePath, outputDir string) (srt, txt string) {
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+".srt"), filepath.Join(outputDir, stem+".txt")
}
