package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mediasieve/internal/media/metadata"
)

// SelectorKind identifies the metadata facet a selector addresses.
type SelectorKind int

const (
	FormatSelector SelectorKind = iota
	StreamSelector
	CountSelector
)

var (
	streamSelectorRE = regexp.MustCompile(`(?i)^stream:([a-z]+):(\d+)$`)
	countSelectorRE  = regexp.MustCompile(`(?i)^count:([a-z]+)$`)
)

// Selector is a parsed selector key.
type Selector struct {
	Raw    string
	Kind   SelectorKind
	Stream metadata.Kind
	Index  int
}

func (s Selector) String() string {
	return s.Raw
}

// ParseSelector parses "format", "stream:<kind>:<n>", or "count:<kind>".
func ParseSelector(raw string) (Selector, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, "format") {
		return Selector{Raw: raw, Kind: FormatSelector}, nil
	}
	if m := streamSelectorRE.FindStringSubmatch(trimmed); m != nil {
		kind, err := metadata.ParseKind(m[1])
		if err != nil {
			return Selector{}, fmt.Errorf("%w: %q in selector %q", ErrUnknownStreamType, m[1], raw)
		}
		index, err := strconv.Atoi(m[2])
		if err != nil {
			return Selector{}, fmt.Errorf("%w: %q", ErrStreamIndexOutOfRange, m[2])
		}
		return Selector{Raw: raw, Kind: StreamSelector, Stream: kind, Index: index}, nil
	}
	if m := countSelectorRE.FindStringSubmatch(trimmed); m != nil {
		kind, err := metadata.ParseKind(m[1])
		if err != nil {
			return Selector{}, fmt.Errorf("%w: %q in selector %q", ErrUnknownStreamType, m[1], raw)
		}
		return Selector{Raw: raw, Kind: CountSelector, Stream: kind}, nil
	}
	return Selector{}, fmt.Errorf("%w: %q", ErrUnknownSelector, raw)
}
