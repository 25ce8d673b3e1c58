// Package manifest parses M3U playlist manifests into channel entries.
package manifest

import "strconv"

// Recognized #EXTINF attribute keys. Keys absent from the manifest are
// omitted from Entry.Attrs, never stored as an empty string.
const (
	AttrTVGID      = "tvg-id"
	AttrTVGName    = "tvg-name"
	AttrTVGLogo    = "tvg-logo"
	AttrGroupTitle = "group-title"
)

// UnknownChannel is the display name used when an #EXTINF line has no comma.
const UnknownChannel = "Unknown"

// Entry is one parsed channel/endpoint pair from a manifest.
type Entry struct {
	SourceManifest string            `json:"source_url"`
	Ordinal        int               `json:"-"`
	ChannelName    string            `json:"channel_name"`
	Endpoint       string            `json:"stream_url"`
	Attrs          map[string]string `json:"attributes,omitempty"`
}

// Key returns the stable store key for the entry: "<source>_<ordinal>".
// Re-parsing the same manifest yields the same keys at the same ordinals.
func (e Entry) Key() string {
	return e.SourceManifest + "_" + strconv.Itoa(e.Ordinal)
}
