package group

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/channelpick/channel-pick/internal/manifest"
)

func entry(name, endpoint string) manifest.Entry {
	return manifest.Entry{SourceManifest: "m", ChannelName: name, Endpoint: endpoint}
}

func TestClassOf(t *testing.T) {
	cases := []struct {
		endpoint string
		want     int
	}{
		{"https://1.2.3.4/a", 1},
		{"https://cdn.example.com/a", 1},
		{"http://1.2.3.4/a", 2},
		{"https://[2001:db8::1]/a", 3},
		{"http://[2001:db8::1]:8080/a", 4},
		{"rtsp://1.2.3.4/a", classNone},
		{"not a url", classNone},
	}
	for _, c := range cases {
		if got := classOf(c.endpoint); got != c.want {
			t.Errorf("classOf(%q) = %d; want %d", c.endpoint, got, c.want)
		}
	}
}

func TestBuild_priority(t *testing.T) {
	// http-ipv4, https-ipv6, https-ipv4 in that order: class 1 wins even
	// though entries of lower classes appear earlier.
	entries := []manifest.Entry{
		entry("CNN", "http://1.2.3.4/a"),
		entry("CNN", "https://[2001:db8::1]/a"),
		entry("CNN", "https://5.6.7.8/a"),
	}
	groups := Build(entries)
	g := groups["CNN"]
	if g.Primary.Endpoint != "https://5.6.7.8/a" {
		t.Errorf("primary = %q; want https://5.6.7.8/a", g.Primary.Endpoint)
	}
	wantOverflow := []string{"http://1.2.3.4/a", "https://[2001:db8::1]/a"}
	if len(g.Overflow) != 2 {
		t.Fatalf("overflow = %+v", g.Overflow)
	}
	for i, alt := range g.Overflow {
		if alt.Endpoint != wantOverflow[i] {
			t.Errorf("overflow[%d] = %q; want %q", i, alt.Endpoint, wantOverflow[i])
		}
	}
}

func TestBuild_tieBreakOriginalOrder(t *testing.T) {
	entries := []manifest.Entry{
		entry("A", "https://first.example/a"),
		entry("A", "https://second.example/a"),
	}
	g := Build(entries)["A"]
	if g.Primary.Endpoint != "https://first.example/a" {
		t.Errorf("primary = %q; want the first same-class entry", g.Primary.Endpoint)
	}
}

func TestBuild_noClassFallsBackToFirst(t *testing.T) {
	entries := []manifest.Entry{
		entry("A", "rtsp://1.2.3.4/a"),
		entry("A", "mms://5.6.7.8/a"),
	}
	g := Build(entries)["A"]
	if g.Primary.Endpoint != "rtsp://1.2.3.4/a" {
		t.Errorf("primary = %q; want the first entry", g.Primary.Endpoint)
	}
	if len(g.Overflow) != 1 {
		t.Errorf("overflow = %+v", g.Overflow)
	}
}

func TestBuild_exactNameMatch(t *testing.T) {
	entries := []manifest.Entry{
		entry("CNN", "http://1.2.3.4/a"),
		entry("CNN ", "http://5.6.7.8/b"), // trailing space: different group
	}
	groups := Build(entries)
	if len(groups) != 2 {
		t.Errorf("expected 2 groups; got %d", len(groups))
	}
}

func TestBuild_primaryNotInOverflow(t *testing.T) {
	entries := []manifest.Entry{
		entry("A", "http://1.2.3.4/a"),
		entry("A", "https://5.6.7.8/a"),
		entry("A", "http://9.9.9.9/a"),
	}
	g := Build(entries)["A"]
	for _, alt := range g.Overflow {
		if alt.Endpoint == g.Primary.Endpoint {
			t.Errorf("primary %q duplicated in overflow", g.Primary.Endpoint)
		}
	}
	if 1+len(g.Overflow) != len(entries) {
		t.Errorf("member count = %d; want %d", 1+len(g.Overflow), len(entries))
	}
}

func TestBuild_deterministic(t *testing.T) {
	entries := []manifest.Entry{
		entry("A", "http://1.2.3.4/a"),
		entry("B", "https://[2001:db8::1]/b"),
		entry("A", "https://5.6.7.8/a"),
		entry("B", "http://5.6.7.8/b"),
	}
	first := Build(entries)
	second := Build(entries)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("rebuild differs:\n%+v\n%+v", first, second)
	}
}

// TestBuild_endToEndScenario mirrors the documented manifest-to-group flow:
// two entries named "Channel A" where no https/IPv4 candidate exists, so the
// plain-transport IPv4 endpoint wins and the IPv6 one overflows.
func TestBuild_endToEndScenario(t *testing.T) {
	m3u := "#EXTM3U\n#EXTINF:-1 tvg-id=\"1\" group-title=\"News\",Channel A\nhttp://1.2.3.4/a\n#EXTINF:-1,Channel A\nhttps://[2001:db8::1]/a\n"
	entries, err := manifest.ParseBytes([]byte(m3u), "src")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries; got %d", len(entries))
	}
	groups := Build(entries)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group; got %d", len(groups))
	}
	g := groups["Channel A"]
	if g.Primary.Endpoint != "http://1.2.3.4/a" {
		t.Errorf("primary = %q; want http://1.2.3.4/a", g.Primary.Endpoint)
	}
	if len(g.Overflow) != 1 || g.Overflow[0].Endpoint != "https://[2001:db8::1]/a" {
		t.Errorf("overflow = %+v", g.Overflow)
	}
	if g.Primary.Attrs[manifest.AttrGroupTitle] != "News" {
		t.Errorf("primary attrs = %v", g.Primary.Attrs)
	}
}

func TestGroup_jsonRoundTrip(t *testing.T) {
	g := Group{
		ChannelName: "Channel A",
		Primary: Record{
			SourceManifest: "http://prov/get.php",
			Endpoint:       "https://1.2.3.4/a",
			Attrs:          map[string]string{manifest.AttrTVGID: "1"},
		},
		Overflow: []Record{
			{SourceManifest: "http://prov/get.php", Endpoint: "http://5.6.7.8/a"},
		},
	}
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	var back Group
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(g, back) {
		t.Errorf("round trip differs:\n%+v\n%+v", g, back)
	}
}
