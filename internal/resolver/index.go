package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/oshokin/tor-expert-runner/internal/logger"
)

// DefaultIndexURL is the directory listing of published Tor Browser
// releases; each version lives in its own subdirectory.
const DefaultIndexURL = "https://archive.torproject.org/tor-package-archive/torbrowser/"

// parentDirectoryHref is the listing entry pointing at the parent directory.
const parentDirectoryHref = "../"

// errBadIndexStatus is returned when the index responds with a non-OK status.
var errBadIndexStatus = errors.New("unexpected http status from the version index")

// IndexClient lists published versions by parsing the HTML directory
// listing served by the release archive. It implements Lister.
type IndexClient struct {
	indexURL   string
	httpClient *http.Client
}

// IndexOption configures an IndexClient.
type IndexOption func(*IndexClient)

// WithIndexURL overrides the directory listing URL.
func WithIndexURL(indexURL string) IndexOption {
	return func(c *IndexClient) {
		if indexURL != "" {
			c.indexURL = indexURL
		}
	}
}

// WithIndexHTTPClient overrides the HTTP client used for listing requests.
func WithIndexHTTPClient(httpClient *http.Client) IndexOption {
	return func(c *IndexClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewIndexClient creates an IndexClient pointed at DefaultIndexURL.
func NewIndexClient(opts ...IndexOption) *IndexClient {
	client := &IndexClient{
		indexURL:   DefaultIndexURL,
		httpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ListVersions fetches the directory listing and returns the names of the
// version subdirectories, trailing slashes removed. The parent-directory
// entry is excluded; any further filtering is up to the caller.
func (c *IndexClient) ListVersions(ctx context.Context) ([]string, error) {
	logger.InfoKV(ctx, "Listing published Tor versions", "index_url", c.indexURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.indexURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build index request: %w", err)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch version index: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s, %s: %w", c.indexURL, response.Status, errBadIndexStatus)
	}

	document, err := html.Parse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("parse version index: %w", err)
	}

	return collectDirectoryEntries(document), nil
}

// collectDirectoryEntries walks the parsed document and gathers anchors
// whose href names a subdirectory.
func collectDirectoryEntries(document *html.Node) []string {
	var entries []string

	for node := range document.Descendants() {
		if node.Type != html.ElementNode || node.Data != "a" {
			continue
		}

		href := anchorHref(node)
		if href == "" || href == parentDirectoryHref || !strings.HasSuffix(href, "/") {
			continue
		}

		entries = append(entries, strings.TrimSuffix(href, "/"))
	}

	return entries
}

// anchorHref returns the href attribute of an anchor node, if any.
func anchorHref(node *html.Node) string {
	for _, attribute := range node.Attr {
		if attribute.Key == "href" {
			return attribute.Val
		}
	}

	return ""
}
