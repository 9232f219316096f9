package engine

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func writeSource(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "abc_meeting.wav")
	if err := os.WriteFile(p, []byte("RIFFfakewav"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return p
}

func TestWhisperTranscribe_WritesBothFormats(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(f)
		format := r.FormValue("response_format")

		mu.Lock()
		seen[format] = r.FormValue("model") + "|" + r.FormValue("language") + "|" + string(body)
		mu.Unlock()

		switch format {
		case "srt":
			io.WriteString(w, "1\n00:00:00,000 --> 00:00:01,000\nhello\n")
		case "text":
			io.WriteString(w, "hello\n")
		default:
			http.Error(w, "bad format", http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := writeSource(t, dir)
	wb := NewWhisper(srv.URL, "")

	res, err := wb.Transcribe(context.Background(), Request{SourcePath: src, Language: "en", Model: "small", OutputDir: dir}, nil)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}

	if seen["srt"] != "small|en|RIFFfakewav" || seen["text"] != "small|en|RIFFfakewav" {
		t.Fatalf("unexpected requests: %v", seen)
	}
	srt, _ := os.ReadFile(res.SubtitlePath)
	if !strings.Contains(string(srt), "hello") {
		t.Fatalf("srt = %q", srt)
	}
	txt, _ := os.ReadFile(res.TextPath)
	if string(txt) != "hello\n" {
		t.Fatalf("txt = %q", txt)
	}
}

func TestWhisperTranscribe_ServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"model not found"}}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	wb := NewWhisper(srv.URL, "base")
	_, err := wb.Transcribe(context.Background(), Request{SourcePath: writeSource(t, dir), OutputDir: dir}, nil)
	if err == nil || err.Error() != "whisper: model not found" {
		t.Fatalf("err = %v", err)
	}
}

func TestWhisperTranscribe_MissingSource(t *testing.T) {
	wb := NewWhisper("http://127.0.0.1:1", "base")
	_, err := wb.Transcribe(context.Background(), Request{SourcePath: "/nonexistent/a.wav", OutputDir: t.TempDir()}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestWhisperTranscribe_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wb := NewWhisper(srv.URL, "base")
	_, err := wb.Transcribe(ctx, Request{SourcePath: writeSource(t, dir), OutputDir: dir}, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}
