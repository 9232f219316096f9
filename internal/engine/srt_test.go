package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	srtPath := filepath.Join(dir, "in.srt")
	txtPath := filepath.Join(dir, "in.txt")

	srt := "\ufeff1\r\n00:00:00,000 --> 00:00:02,000\r\nHello there\r\n\r\n" +
		"2\n00:00:02,500 --> 00:00:04,000\nsecond cue\nwraps here\n\n" +
		"3\n00:00:05,000 --> 00:00:06,000\n42\n"
	if err := os.WriteFile(srtPath, []byte(srt), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := ExtractText(srtPath, txtPath); err != nil {
		t.Fatalf("ExtractText: %v", err)
	}

	got, err := os.ReadFile(txtPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "Hello there\nsecond cue wraps here\n42\n"
	if string(got) != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestExtractText_MissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := ExtractText(filepath.Join(dir, "nope.srt"), filepath.Join(dir, "out.txt")); err == nil {
		t.Fatal("expected error for missing srt")
	}
}
