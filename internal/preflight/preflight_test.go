package preflight

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"mediasieve/internal/config"
	"mediasieve/internal/probestore"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckProbeStore_Disabled(t *testing.T) {
	result := CheckProbeStore(context.Background(), config.ProbeStore{Enabled: false})
	if !result.Passed || result.Detail != "Disabled" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckProbeStore_NotCreatedYet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.db")
	result := CheckProbeStore(context.Background(), config.ProbeStore{Enabled: true, Path: path})
	if !result.Passed || !strings.Contains(result.Detail, "not created yet") {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("check must not create the database")
	}
}

func TestCheckProbeStore_ReportsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.db")
	store, err := probestore.Open(path, 0)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Save(context.Background(), "k", []byte(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Close()

	result := CheckProbeStore(context.Background(), config.ProbeStore{Enabled: true, Path: path})
	if !result.Passed || !strings.Contains(result.Detail, "1 entries") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	bin := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.FFmpeg.Binary = writeStub(t, bin, "ffmpeg", "exit 0")
	cfg.FFprobe.Binary = writeStub(t, bin, "ffprobe", "exit 0")
	cfg.ProbeStore.Enabled = false

	results := RunAll(context.Background(), &cfg)
	// scratch + ffmpeg + ffprobe + probe store
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_MissingBinaryFails(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Paths.LogDir = ""
	cfg.FFmpeg.Binary = filepath.Join(t.TempDir(), "no-ffmpeg")
	cfg.FFprobe.Binary = filepath.Join(t.TempDir(), "no-ffprobe")
	cfg.ProbeStore.Enabled = false

	failed := Failed(RunAll(context.Background(), &cfg))
	if len(failed) != 2 {
		t.Fatalf("expected both binaries to fail, got %+v", failed)
	}
	for _, r := range failed {
		if r.Name != "FFmpeg" && r.Name != "FFprobe" {
			t.Fatalf("unexpected failed check %q", r.Name)
		}
	}
}

func TestProbeVersion(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	stub := writeStub(t, t.TempDir(), "ffmpeg", `echo "ffmpeg version 6.1.1-test Copyright (c) 2000-2023"`)
	probe := ProbeVersion(context.Background(), stub)
	if !probe.Detected || probe.Version != "6.1.1-test" {
		t.Fatalf("unexpected probe %+v", probe)
	}
	if !strings.Contains(probe.Detail(), "6.1.1-test") {
		t.Fatalf("unexpected detail %q", probe.Detail())
	}

	missing := ProbeVersion(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if missing.Detected || missing.Detail() != "Not detected" {
		t.Fatalf("unexpected probe %+v", missing)
	}
}

func TestParseVersion(t *testing.T) {
	if got := parseVersion("ffprobe version n7.0 Copyright\nbuilt with gcc"); got != "n7.0" {
		t.Fatalf("got %q", got)
	}
	if got := parseVersion("garbage"); got != "Unknown" {
		t.Fatalf("got %q", got)
	}
}
