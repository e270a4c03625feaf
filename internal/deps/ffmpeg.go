package deps

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe picks the ffprobe binary that belongs with the configured
// ffmpeg. An explicitly configured ffprobe path always wins. When ffprobe is
// left at its bare default and ffmpeg resolves to a concrete location, an
// ffprobe sitting next to that ffmpeg is preferred so both tools come from the
// same build. Otherwise the configured name is returned unchanged.
func ResolveFFprobe(ffprobeCommand, ffmpegCommand string) string {
	ffprobeCommand = strings.TrimSpace(ffprobeCommand)
	if ffprobeCommand != "" && ffprobeCommand != "ffprobe" {
		return ffprobeCommand
	}
	if ffprobeCommand == "" {
		ffprobeCommand = "ffprobe"
	}

	ffmpegCommand = strings.TrimSpace(ffmpegCommand)
	if ffmpegCommand == "" {
		return ffprobeCommand
	}
	resolved, err := exec.LookPath(ffmpegCommand)
	if err != nil {
		return ffprobeCommand
	}
	candidate := filepath.Join(filepath.Dir(resolved), executableName("ffprobe"))
	if _, err := ResolveExecutable(candidate); err == nil {
		return candidate
	}
	return ffprobeCommand
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}
