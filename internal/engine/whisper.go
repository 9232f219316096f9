package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Whisper talks to an OpenAI-compatible transcription server
// (faster-whisper-server, speaches, whisper.cpp server).
type Whisper struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

type whisperErrorResp struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func NewWhisper(baseURL, model string) *Whisper {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if model == "" {
		model = "base"
	}
	return &Whisper{
		BaseURL: baseURL,
		Model:   model,
		// no global timeout; long media can take minutes and ctx controls it
		Client: &http.Client{},
	}
}

func (w *Whisper) Name() string { return NameWhisper }

func (w *Whisper) Transcribe(ctx context.Context, req Request, sink ProgressSink) (Result, error) {
	if w.Client == nil {
		return Result{}, errors.New("whisper: http client is nil")
	}
	sink = sinkOrNop(sink)
	srtPath, txtPath := OutputPaths(req.SourcePath, req.OutputDir)

	sink.Report(10, "Transcribing subtitles")
	if err := w.fetch(ctx, req, "srt", srtPath); err != nil {
		return Result{}, err
	}

	sink.Report(60, "Transcribing text")
	if err := w.fetch(ctx, req, "text", txtPath); err != nil {
		return Result{}, err
	}

	return Result{SubtitlePath: srtPath, TextPath: txtPath}, nil
}

// fetch uploads the source file and writes the response body to dst.
func (w *Whisper) fetch(ctx context.Context, req Request, format, dst string) error {
	src, err := os.Open(req.SourcePath)
	if err != nil {
		return fmt.Errorf("whisper: open source: %w", err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeForm(mw, src, req, w.Model, format)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	url := fmt.Sprintf("%s/v1/audio/transcriptions", strings.TrimRight(w.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.Client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return ErrCancelled
		}
		return fmt.Errorf("whisper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("whisper: %s", errorMessage(resp.StatusCode, body))
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("whisper: create output: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("whisper: write output: %w", err)
	}
	return out.Close()
}

func writeForm(mw *multipart.Writer, src io.Reader, req Request, defaultModel, format string) error {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = defaultModel
	}
	fields := map[string]string{
		"model":           model,
		"response_format": format,
	}
	if lang := strings.TrimSpace(req.Language); lang != "" && lang != "auto" {
		fields["language"] = lang
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(req.SourcePath))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

func errorMessage(status int, body []byte) string {
	var decoded whisperErrorResp
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Error != nil && decoded.Error.Message != "" {
			return decoded.Error.Message
		}
		if decoded.Detail != "" {
			return decoded.Detail
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	return msg
}
