package fieldmode

import (
	"fmt"
	"strings"

	"mediasieve/internal/media/ffprobe"
)

// Mode classifies the field order of a video stream.
type Mode int

const (
	MixedOrUnknown Mode = iota
	InterlacedTFF
	InterlacedBFF
	Progressive
)

var labels = map[Mode]string{
	MixedOrUnknown: "mixed_or_unknown",
	InterlacedTFF:  "interlaced_tff",
	InterlacedBFF:  "interlaced_bff",
	Progressive:    "progressive",
}

func (m Mode) String() string {
	if label, ok := labels[m]; ok {
		return label
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts a label or its numeric code.
func ParseMode(value string) (Mode, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	for mode, label := range labels {
		if trimmed == label || trimmed == fmt.Sprint(int(mode)) {
			return mode, nil
		}
	}
	return MixedOrUnknown, fmt.Errorf("unknown field mode %q", value)
}

// Counts tallies a frame sample.
type Counts struct {
	Total       int
	TFF         int
	BFF         int
	Progressive int
}

// Collect tallies frames by their interlaced_frame and top_field_first flags.
// A frame that is not interlaced but carries top_field_first=1 counts as TFF.
func Collect(frames []map[string]any) Counts {
	counts := Counts{Total: len(frames)}
	for _, frame := range frames {
		interlaced, _ := ffprobe.Int(frame, "interlaced_frame")
		tff, _ := ffprobe.Int(frame, "top_field_first")
		switch {
		case tff == 1:
			counts.TFF++
		case interlaced == 1:
			counts.BFF++
		default:
			counts.Progressive++
		}
	}
	return counts
}

// Decide returns the uniform classification of a tally, or MixedOrUnknown
// when frames disagree or the sample is empty.
func (c Counts) Decide() Mode {
	switch {
	case c.Total == 0:
		return MixedOrUnknown
	case c.TFF == c.Total:
		return InterlacedTFF
	case c.BFF == c.Total:
		return InterlacedBFF
	case c.Progressive == c.Total:
		return Progressive
	default:
		return MixedOrUnknown
	}
}

// Classify tallies and decides in one step.
func Classify(frames []map[string]any) Mode {
	return Collect(frames).Decide()
}
