package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/channelpick/channel-pick/internal/httpclient"
)

const userAgent = "channel-pick/1.0"

// Fetch downloads the manifest at m3uURL and parses it in a streaming
// fashion. If client is nil, httpclient.Default() is used. 429/5xx responses
// are retried once per httpclient.DefaultRetryPolicy; any other non-200
// status is an error. Brotli is offered and decoded transparently; servers
// that ignore it send identity.
func Fetch(ctx context.Context, m3uURL string, client *http.Client) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m3uURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "br")
	resp, err := httpclient.DoWithRetry(ctx, client, req, httpclient.DefaultRetryPolicy)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", m3uURL, resp.StatusCode)
	}
	var body io.Reader = resp.Body
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Encoding")), "br") {
		body = brotli.NewReader(resp.Body)
	}
	return Parse(body, m3uURL)
}
