package manifest

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_missingHeader(t *testing.T) {
	_, err := ParseBytes([]byte("#EXTINF:-1,Channel A\nhttp://1.2.3.4/a\n"), "src")
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat; got %v", err)
	}
	_, err = ParseBytes(nil, "src")
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat for empty input; got %v", err)
	}
}

func TestParse_pairing(t *testing.T) {
	m3u := `#EXTM3U

#EXTINF:-1 tvg-id="1" group-title="News",Channel A
http://1.2.3.4/a
#EXTINF:-1,Dropped (no endpoint follows)
#EXTINF:-1,Channel B
https://example.com/b
http://orphan.example/ignored
#EXTGRP:ignored directive
`
	entries, err := ParseBytes([]byte(m3u), "src")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries; got %d", len(entries))
	}
	if entries[0].ChannelName != "Channel A" || entries[0].Endpoint != "http://1.2.3.4/a" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].ChannelName != "Channel B" || entries[1].Endpoint != "https://example.com/b" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
	// Ordinals count completed entries, not metadata lines seen.
	if entries[0].Ordinal != 0 || entries[1].Ordinal != 1 {
		t.Errorf("ordinals = %d, %d; want 0, 1", entries[0].Ordinal, entries[1].Ordinal)
	}
}

func TestParse_attributes(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-id="cnn.us" tvg-name="CNN" tvg-logo="http://logo/cnn.png" group-title="News",CNN
http://1.2.3.4/cnn
#EXTINF:-1,Bare
http://1.2.3.4/bare
`
	entries, err := ParseBytes([]byte(m3u), "src")
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		AttrTVGID:      "cnn.us",
		AttrTVGName:    "CNN",
		AttrTVGLogo:    "http://logo/cnn.png",
		AttrGroupTitle: "News",
	}
	if !reflect.DeepEqual(entries[0].Attrs, want) {
		t.Errorf("attrs = %v; want %v", entries[0].Attrs, want)
	}
	// Unmatched keys are omitted, never stored as empty strings.
	if entries[1].Attrs != nil {
		t.Errorf("bare entry attrs = %v; want nil", entries[1].Attrs)
	}
}

func TestParse_channelName(t *testing.T) {
	m3u := `#EXTM3U
#EXTINF:-1 tvg-name="has,comma",  Trailing Name
http://1.2.3.4/a
#EXTINF:-1 no comma here at all
http://1.2.3.4/b
`
	entries, err := ParseBytes([]byte(m3u), "src")
	if err != nil {
		t.Fatal(err)
	}
	// Name is the text after the LAST comma, trimmed.
	if entries[0].ChannelName != "Trailing Name" {
		t.Errorf("name = %q; want %q", entries[0].ChannelName, "Trailing Name")
	}
	if entries[1].ChannelName != UnknownChannel {
		t.Errorf("name = %q; want %q", entries[1].ChannelName, UnknownChannel)
	}
}

func TestParse_deterministic(t *testing.T) {
	m3u := []byte(`#EXTM3U
#EXTINF:-1 tvg-id="1",A
http://1.2.3.4/a
#EXTINF:-1,B
http://1.2.3.4/b
`)
	first, err := ParseBytes(m3u, "src")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseBytes(m3u, "src")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-parse differs:\n%+v\n%+v", first, second)
	}
}

func TestParse_keyStable(t *testing.T) {
	e := Entry{SourceManifest: "http://prov/get.php", Ordinal: 3}
	if e.Key() != "http://prov/get.php_3" {
		t.Errorf("key = %q", e.Key())
	}
}
