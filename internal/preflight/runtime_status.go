package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// VersionProbe reports what a media binary says about itself.
type VersionProbe struct {
	Binary   string
	Detected bool
	Version  string
}

// ProbeVersion runs "<binary> -version" and extracts the version token from
// the banner line ("ffmpeg version 6.1.1 Copyright ...").
func ProbeVersion(ctx context.Context, binary string) VersionProbe {
	binary = strings.TrimSpace(binary)
	probe := VersionProbe{Binary: binary}
	if binary == "" {
		return probe
	}
	if _, err := exec.LookPath(binary); err != nil {
		return probe
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return probe
	}
	probe.Detected = true
	probe.Version = parseVersion(string(output))
	return probe
}

func parseVersion(banner string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(banner), "\n")
	fields := strings.Fields(first)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return "Unknown"
}

// Detail renders a display-friendly summary for status UIs.
func (p VersionProbe) Detail() string {
	if !p.Detected {
		return "Not detected"
	}
	return fmt.Sprintf("%s (version %s)", p.Binary, p.Version)
}
