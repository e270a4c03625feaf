package deps

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeStub(t *testing.T, path string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), mode); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	writeStub(t, present, 0o755)
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Empty", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected empty command status: %#v", results[2])
	}
}

func TestResolveExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not meaningful on windows")
	}
	dir := t.TempDir()
	exe := filepath.Join(dir, "tool")
	plain := filepath.Join(dir, "plain")
	writeStub(t, exe, 0o755)
	writeStub(t, plain, 0o644)

	got, err := ResolveExecutable(exe)
	if err != nil {
		t.Fatalf("ResolveExecutable returned error: %v", err)
	}
	if got != exe {
		t.Fatalf("ResolveExecutable = %q, want %q", got, exe)
	}

	for _, bad := range []string{plain, dir, filepath.Join(dir, "missing"), ""} {
		if _, err := ResolveExecutable(bad); !errors.Is(err, ErrBinaryNotFound) {
			t.Fatalf("ResolveExecutable(%q) err = %v, want ErrBinaryNotFound", bad, err)
		}
	}
}

func TestResolveExecutableSearchesPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	dir := t.TempDir()
	writeStub(t, filepath.Join(dir, "mytool"), 0o755)
	t.Setenv("PATH", dir)

	got, err := ResolveExecutable("mytool")
	if err != nil {
		t.Fatalf("ResolveExecutable returned error: %v", err)
	}
	if got != filepath.Join(dir, "mytool") {
		t.Fatalf("unexpected resolved path %q", got)
	}
}

func TestResolveFFprobePrefersSibling(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, "ffmpeg")
	ffprobePath := filepath.Join(dir, "ffprobe")
	writeStub(t, ffmpegPath, 0o755)
	writeStub(t, ffprobePath, 0o755)

	if got := ResolveFFprobe("ffprobe", ffmpegPath); got != ffprobePath {
		t.Fatalf("ResolveFFprobe = %q, want sibling %q", got, ffprobePath)
	}
	if got := ResolveFFprobe("/custom/ffprobe", ffmpegPath); got != "/custom/ffprobe" {
		t.Fatalf("explicit ffprobe should win, got %q", got)
	}
}

func TestResolveFFprobeFallsBackToName(t *testing.T) {
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, "ffmpeg")
	writeStub(t, ffmpegPath, 0o755)

	if got := ResolveFFprobe("", ffmpegPath); got != "ffprobe" {
		t.Fatalf("ResolveFFprobe = %q, want ffprobe", got)
	}
}
