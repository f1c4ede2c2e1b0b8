package server

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/cockroachdb/errors"
)

// ResourceLoader fetches the text content behind a resource URI. The
// runtime only hands it file, http and https URIs.
type ResourceLoader interface {
	Load(ctx context.Context, u *url.URL) (string, error)
}

// ResourceLoaderFunc adapts a function to ResourceLoader.
type ResourceLoaderFunc func(ctx context.Context, u *url.URL) (string, error)

func (f ResourceLoaderFunc) Load(ctx context.Context, u *url.URL) (string, error) {
	return f(ctx, u)
}

// URILoader reads file URIs from disk and fetches http(s) URIs with GET.
type URILoader struct {
	Client *http.Client
}

// NewURILoader returns a loader using client, or a client with a 30s
// timeout when client is nil.
func NewURILoader(client *http.Client) *URILoader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &URILoader{Client: client}
}

// Load implements ResourceLoader.
func (l *URILoader) Load(ctx context.Context, u *url.URL) (string, error) {
	switch u.Scheme {
	case "file":
		return loadFile(u)
	case "http", "https":
		return l.loadHTTP(ctx, u)
	default:
		return "", unsupportedScheme(u.Scheme)
	}
}

func loadFile(u *url.URL) (string, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return string(data), nil
}

func (l *URILoader) loadHTTP(ctx context.Context, u *url.URL) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Newf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read body")
	}
	return string(body), nil
}

func supportedScheme(scheme string) bool {
	switch scheme {
	case "file", "http", "https":
		return true
	}
	return false
}

func unsupportedScheme(scheme string) error {
	return errors.Newf("Unsupported URI scheme: %s:", scheme)
}
