package transport

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/thiagodp/BrowserFS/pkg/fserr"
	"github.com/thiagodp/BrowserFS/pkg/logging"
	"github.com/thiagodp/BrowserFS/pkg/metrics"
	"github.com/thiagodp/BrowserFS/pkg/models"
	"github.com/thiagodp/BrowserFS/pkg/retry"
)

// HTTPConfig holds HTTP transport configuration.
type HTTPConfig struct {
	// BaseURL is the root of the remote store; locators are appended
	// to it.
	BaseURL string

	// ListingPath is the path of the listing document relative to
	// BaseURL. Defaults to "index.json".
	ListingPath string

	Timeout     time.Duration
	RetryConfig retry.Config // listing fetch only
	AuthToken   string
}

// HTTP fetches content over plain HTTP(S).
type HTTP struct {
	baseURL     string
	listingPath string
	httpClient  *http.Client
	retryConfig retry.Config

	mu        sync.RWMutex
	online    bool
	authToken string
}

var _ Transport = (*HTTP)(nil)

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}
	if cfg.ListingPath == "" {
		cfg.ListingPath = "index.json"
	}

	return &HTTP{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		listingPath: strings.TrimPrefix(cfg.ListingPath, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
		online:      true,
		authToken:   cfg.AuthToken,
	}
}

// SetAuthToken sets the bearer token for requests.
func (t *HTTP) SetAuthToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.authToken = token
}

func (t *HTTP) applyAuth(req *http.Request) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.authToken)
	}
}

// IsOnline returns true if the last request reached the server.
func (t *HTTP) IsOnline() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online
}

func (t *HTTP) setOnline(online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.online != online {
		if online {
			logging.Info("server is back online")
		} else {
			logging.Error("server is offline")
		}
	}
	t.online = online
}

func (t *HTTP) url(locator string) string {
	return t.baseURL + "/" + strings.TrimPrefix(locator, "/")
}

// FetchSize probes the content length with a HEAD request. Servers
// that reject HEAD get a full GET instead, and the body length is
// counted.
func (t *HTTP) FetchSize(ctx context.Context, locator string) (int64, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.url(locator), nil)
	if err != nil {
		return 0, fserr.Wrap(fserr.TransportFailure, locator, err)
	}
	t.applyAuth(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.setOnline(false)
		metrics.RecordFetch("size", time.Since(start), false)
		return 0, fserr.Wrap(fserr.TransportFailure, locator, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	t.setOnline(true)

	switch {
	case resp.StatusCode == http.StatusOK && resp.ContentLength >= 0:
		metrics.RecordFetch("size", time.Since(start), true)
		logging.Debug("size probe", logging.String("locator", locator),
			logging.Int64("size", resp.ContentLength))
		return resp.ContentLength, nil
	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordFetch("size", time.Since(start), false)
		return 0, fserr.New(fserr.FileNotFound, locator)
	case resp.StatusCode == http.StatusMethodNotAllowed,
		resp.StatusCode == http.StatusNotImplemented,
		resp.StatusCode == http.StatusOK:
		// HEAD unsupported or length undeclared; count the body.
		data, err := t.FetchBytes(ctx, locator)
		if err != nil {
			return 0, err
		}
		return int64(len(data)), nil
	default:
		metrics.RecordFetch("size", time.Since(start), false)
		return 0, fserr.Wrap(fserr.TransportFailure, locator,
			fmt.Errorf("server returned %d", resp.StatusCode))
	}
}

// FetchBytes downloads the complete content.
func (t *HTTP) FetchBytes(ctx context.Context, locator string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url(locator), nil)
	if err != nil {
		return nil, fserr.Wrap(fserr.TransportFailure, locator, err)
	}
	t.applyAuth(req)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.setOnline(false)
		metrics.RecordFetch("content", time.Since(start), false)
		return nil, fserr.Wrap(fserr.TransportFailure, locator, err)
	}
	defer resp.Body.Close()
	t.setOnline(true)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		metrics.RecordFetch("content", time.Since(start), false)
		return nil, fserr.New(fserr.FileNotFound, locator)
	default:
		metrics.RecordFetch("content", time.Since(start), false)
		return nil, fserr.Wrap(fserr.TransportFailure, locator,
			fmt.Errorf("server returned %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordFetch("content", time.Since(start), false)
		return nil, fserr.Wrap(fserr.TransportFailure, locator, err)
	}

	metrics.RecordFetch("content", time.Since(start), true)
	metrics.RecordBytesFetched(int64(len(data)))
	logging.Debug("content fetch", logging.String("locator", locator),
		logging.Int64("size", int64(len(data))),
		logging.Duration("duration", time.Since(start)))
	return data, nil
}

// FetchListing downloads and decodes the listing document. Unlike
// content fetches, the listing fetch is retried with backoff: without
// it the filesystem cannot come up at all.
func (t *HTTP) FetchListing(ctx context.Context) (*models.ListNode, error) {
	start := time.Now()

	root, err := retry.DoValue(ctx, t.retryConfig, func() (*models.ListNode, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url(t.listingPath), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Encoding", "gzip")
		t.applyAuth(req)

		resp, err := t.httpClient.Do(req)
		if err != nil {
			t.setOnline(false)
			return nil, retry.Retryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.setOnline(false)
			if resp.StatusCode >= 500 {
				return nil, retry.Retryable(fmt.Errorf("server error: %d", resp.StatusCode))
			}
			return nil, fmt.Errorf("server returned %d", resp.StatusCode)
		}
		t.setOnline(true)

		var reader io.Reader = resp.Body
		if resp.Header.Get("Content-Encoding") == "gzip" {
			gr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return nil, err
			}
			defer gr.Close()
			reader = gr
		}

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		return DecodeListing(data)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	metrics.RecordListingFetch(time.Since(start))
	return root, nil
}

// DecodeListing accepts either the enveloped form ({"root": {...}}) or
// a bare root node.
func DecodeListing(data []byte) (*models.ListNode, error) {
	var listing models.ListingResponse
	if err := json.Unmarshal(data, &listing); err == nil && listing.Root != nil {
		return listing.Root, nil
	}

	var root models.ListNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	if root.Name == "" && root.Path == "" && len(root.Children) == 0 {
		return nil, fmt.Errorf("listing document has no root")
	}
	return &root, nil
}
