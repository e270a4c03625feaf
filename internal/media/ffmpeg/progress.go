package ffmpeg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	progressMarker = "frame="
	fpsMarker      = "fps="
	tailSize       = 5
)

// scanOutputLines is a bufio.SplitFunc that ends a line at \n, \r, or \r\n.
func scanOutputLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newOutputScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanOutputLines)
	return scanner
}

// parseFrame extracts the frame counter from a -stats line such as
// "frame=  120 fps= 30 q=28.0 size=...". ok is false when the line is not a
// progress line.
func parseFrame(line string) (frame int, ok bool, err error) {
	if !strings.HasPrefix(line, progressMarker) {
		return 0, false, nil
	}
	end := strings.Index(line, fpsMarker)
	if end < len(progressMarker) {
		return 0, true, fmt.Errorf("no %q field in progress line", fpsMarker)
	}
	frame, err = strconv.Atoi(strings.TrimSpace(line[len(progressMarker):end]))
	if err != nil {
		return 0, true, fmt.Errorf("parse frame counter: %w", err)
	}
	return frame, true, nil
}

// tail keeps the most recent lines.
type tail struct {
	lines []string
}

func (t *tail) add(line string) {
	if len(t.lines) == tailSize {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:tailSize-1]
	}
	t.lines = append(t.lines, line)
}

func (t *tail) snapshot() []string {
	return append([]string(nil), t.lines...)
}
