package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const maxLineSize = 1 << 20 // 1 MiB per line

// ErrFormat is returned when the input does not begin with the #EXTM3U header.
// The manifest is skipped as a whole; no partial entries are produced.
var ErrFormat = errors.New("manifest: missing #EXTM3U header")

var attrPatterns = map[string]*regexp.Regexp{
	AttrTVGID:      regexp.MustCompile(`tvg-id="([^"]*)"`),
	AttrTVGName:    regexp.MustCompile(`tvg-name="([^"]*)"`),
	AttrTVGLogo:    regexp.MustCompile(`tvg-logo="([^"]*)"`),
	AttrGroupTitle: regexp.MustCompile(`group-title="([^"]*)"`),
}

// Parse reads an M3U manifest from r and returns its entries in parse order.
// source identifies the manifest (its URL) and is recorded on every entry.
//
// An #EXTINF line starts a pending entry; the next line beginning with "http"
// completes it. An #EXTINF followed by another #EXTINF (no endpoint between)
// drops the first silently; an endpoint line with no pending #EXTINF is
// ignored; other non-blank lines are ignored. Ordinals count completed
// entries from 0, independent of how many metadata lines were dropped.
func Parse(r io.Reader, source string) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)

	sawHeader := false
	var entries []Entry
	var pending string
	havePending := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			if !strings.HasPrefix(line, "#EXTM3U") {
				return nil, fmt.Errorf("%w: %s", ErrFormat, source)
			}
			sawHeader = true
			continue
		}
		if strings.HasPrefix(line, "#EXTINF") {
			pending = line
			havePending = true
			continue
		}
		if strings.HasPrefix(line, "http") && havePending {
			entries = append(entries, Entry{
				SourceManifest: source,
				Ordinal:        len(entries),
				ChannelName:    channelName(pending),
				Endpoint:       line,
				Attrs:          attributes(pending),
			})
			pending = ""
			havePending = false
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("%w: %s", ErrFormat, source)
	}
	return entries, nil
}

// ParseBytes parses a manifest held in memory. Used by tests and the CLI.
func ParseBytes(data []byte, source string) ([]Entry, error) {
	return Parse(strings.NewReader(string(data)), source)
}

// channelName extracts the display name: the text after the last comma,
// trimmed. #EXTINF lines with no comma get the Unknown sentinel.
func channelName(extinf string) string {
	i := strings.LastIndex(extinf, ",")
	if i < 0 {
		return UnknownChannel
	}
	return strings.TrimSpace(extinf[i+1:])
}

// attributes extracts the recognized key="value" tokens from an #EXTINF line.
// Unmatched keys are omitted.
func attributes(extinf string) map[string]string {
	var attrs map[string]string
	for key, re := range attrPatterns {
		m := re.FindStringSubmatch(extinf)
		if m == nil {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string, 4)
		}
		attrs[key] = m[1]
	}
	return attrs
}
