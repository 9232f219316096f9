package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// exitInterrupted is the shell convention for a process stopped by SIGINT.
const exitInterrupted = 130

// commandResult is the captured output of one process run.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		return res, err
	}
	return res, nil
}

// Autosub drives the autosub CLI, which uploads speech regions to the
// Google Speech API and writes an SRT file. The text file is derived from it.
type Autosub struct {
	Path   string
	runner commandRunner
	stat   func(name string) (os.FileInfo, error)
}

func NewAutosub(path string) *Autosub {
	if path == "" {
		path = "autosub"
	}
	return &Autosub{Path: path, runner: execRunner{}, stat: os.Stat}
}

func (a *Autosub) Name() string { return NameAutosub }

func (a *Autosub) Transcribe(ctx context.Context, req Request, sink ProgressSink) (Result, error) {
	sink = sinkOrNop(sink)
	srtPath, txtPath := OutputPaths(req.SourcePath, req.OutputDir)

	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		lang = "en"
	}

	sink.Report(5, "Detecting speech regions")
	res, err := a.runner.Run(ctx, a.Path, "-S", lang, "-D", lang, "-o", srtPath, req.SourcePath)
	if err != nil {
		if ctx.Err() != nil || res.ExitCode == exitInterrupted {
			return Result{}, ErrCancelled
		}
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = err.Error()
		}
		return Result{}, fmt.Errorf("autosub: exit=%d: %s", res.ExitCode, msg)
	}
	sink.Report(80, "Subtitles generated")

	if _, err := a.stat(srtPath); err != nil {
		return Result{}, fmt.Errorf("autosub: failed to generate subtitles: %w", err)
	}

	sink.Report(90, "Extracting text")
	if err := ExtractText(srtPath, txtPath); err != nil {
		return Result{}, fmt.Errorf("autosub: extract text: %w", err)
	}

	return Result{SubtitlePath: srtPath, TextPath: txtPath}, nil
}
