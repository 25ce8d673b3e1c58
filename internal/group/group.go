// Package group merges entries sharing a channel name and selects the best
// endpoint per channel by transport class.
package group

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/channelpick/channel-pick/internal/manifest"
)

// Record is one endpoint belonging to a group: the entry fields that survive
// grouping. Attribute maps are copied verbatim from the source entry.
type Record struct {
	SourceManifest string            `json:"source_url"`
	Endpoint       string            `json:"stream_url"`
	Attrs          map[string]string `json:"attributes,omitempty"`
}

// Group is all records sharing one exact channel name: a primary plus an
// ordered overflow list of alternates. The primary never appears in the
// overflow of the same group.
type Group struct {
	ChannelName string
	Primary     Record
	Overflow    []Record
}

// classNone ranks endpoints that match no transport class.
const classNone = 5

// classOf ranks an endpoint for primary selection. Lower is better:
//
//	1  https, non-bracketed host (secure, IPv4/hostname)
//	2  http, non-bracketed host
//	3  https, bracketed host (IPv6 literal)
//	4  http, bracketed host
//
// Secure transport is preferred over plain; literal IPv6 addressing ranks
// below IPv4/hostname because clients resolve the latter more reliably.
// Anything unparseable or scheme-less ranks last.
func classOf(endpoint string) int {
	u, err := url.Parse(endpoint)
	if err != nil {
		return classNone
	}
	var secure bool
	switch u.Scheme {
	case "https":
		secure = true
	case "http":
		secure = false
	default:
		return classNone
	}
	bracketed := strings.Contains(u.Host, "[")
	switch {
	case secure && !bracketed:
		return 1
	case !secure && !bracketed:
		return 2
	case secure && bracketed:
		return 3
	default:
		return 4
	}
}

// Build partitions entries by exact channel name (first-seen order preserved
// within each partition) and selects each partition's primary: the record
// with the minimal class, ties broken by original order. When no record
// matches any class the partition's first record wins by default. The result
// is deterministic for a fixed entry sequence.
func Build(entries []manifest.Entry) map[string]Group {
	type member struct {
		rec   Record
		class int
	}
	partitions := make(map[string][]member)
	for _, e := range entries {
		if e.Endpoint == "" {
			continue
		}
		partitions[e.ChannelName] = append(partitions[e.ChannelName], member{
			rec:   Record{SourceManifest: e.SourceManifest, Endpoint: e.Endpoint, Attrs: e.Attrs},
			class: classOf(e.Endpoint),
		})
	}

	groups := make(map[string]Group, len(partitions))
	for name, members := range partitions {
		best := 0
		for i, m := range members {
			if m.class < members[best].class {
				best = i
			}
		}
		g := Group{ChannelName: name, Primary: members[best].rec}
		for i, m := range members {
			if i == best {
				continue
			}
			g.Overflow = append(g.Overflow, m.rec)
		}
		groups[name] = g
	}
	return groups
}

// Names returns the group names in sorted order; output handed to sinks is
// keyed/sorted by channel name, never by completion order.
func Names(groups map[string]Group) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// groupJSON is the persisted form: primary fields flattened beside the
// channel name with alternates under "childlist".
type groupJSON struct {
	SourceManifest string            `json:"source_url"`
	ChannelName    string            `json:"channel_name"`
	Endpoint       string            `json:"stream_url"`
	Attrs          map[string]string `json:"attributes,omitempty"`
	Childlist      []Record          `json:"childlist"`
}

// MarshalJSON writes the flat persisted form.
func (g Group) MarshalJSON() ([]byte, error) {
	overflow := g.Overflow
	if overflow == nil {
		overflow = []Record{}
	}
	return json.Marshal(groupJSON{
		SourceManifest: g.Primary.SourceManifest,
		ChannelName:    g.ChannelName,
		Endpoint:       g.Primary.Endpoint,
		Attrs:          g.Primary.Attrs,
		Childlist:      overflow,
	})
}

// UnmarshalJSON reads the flat persisted form.
func (g *Group) UnmarshalJSON(data []byte) error {
	var raw groupJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	g.ChannelName = raw.ChannelName
	g.Primary = Record{
		SourceManifest: raw.SourceManifest,
		Endpoint:       raw.Endpoint,
		Attrs:          raw.Attrs,
	}
	if len(raw.Childlist) == 0 {
		g.Overflow = nil
	} else {
		g.Overflow = raw.Childlist
	}
	return nil
}
