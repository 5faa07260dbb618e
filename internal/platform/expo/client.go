package expo

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/streamyfin/go-push-service/pkg/push"
)

// DefaultEndpoint is Expo's production push API.
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// DefaultTimeout bounds one gateway exchange. The gateway publishes no SLA,
// so this is a configuration default rather than a derived value.
const DefaultTimeout = 30 * time.Second

// HTTPClient is the subset of http.Client the dispatcher uses. It allows
// mocking the wire exchange in unit tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the gateway connection parameters.
type Config struct {
	// Endpoint defaults to DefaultEndpoint when empty.
	Endpoint string
	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
	// MaxBatchSize caps the envelopes per request when > 0. The gateway's
	// batch limits are undocumented, so this stays configurable; the client
	// never chunks — oversized batches are rejected to the caller.
	MaxBatchSize int
}

// Client sends notification batches to the Expo push gateway. One Send is
// one HTTPS POST; there is no retry and no chunking of large batches.
type Client struct {
	endpoint     string
	maxBatchSize int
	httpClient   HTTPClient
	logger       *slog.Logger
}

// NewClient creates a gateway client with a bounded-timeout HTTP client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		maxBatchSize: cfg.MaxBatchSize,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger.With("component", "ExpoClient"),
	}
}

// Send posts the envelope batch and decodes the gateway's reply. Transport
// failures, non-2xx statuses and malformed bodies all surface as errors;
// the caller decides what to do with a failed dispatch.
func (c *Client) Send(ctx context.Context, envelopes []push.Envelope) (*push.DeliveryResponse, error) {
	if c.maxBatchSize > 0 && len(envelopes) > c.maxBatchSize {
		return nil, fmt.Errorf("batch of %d envelopes exceeds configured limit of %d", len(envelopes), c.maxBatchSize)
	}

	body, err := EncodeBatch(envelopes)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	// Set explicitly to match the gateway contract. This disables the
	// transport's transparent gzip handling, so decompression is ours.
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	c.logger.Debug("Sending push batch", "envelopes", len(envelopes), "bytes", len(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader, err := responseReader(resp)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(reader, 4096))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, raw)
	}

	delivery, err := DecodeResponse(reader)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Received gateway response", "tickets", len(delivery.Data))
	return delivery, nil
}

// responseReader unwraps a gzip-encoded body when the gateway compressed it.
// The caller must close the reader; closing the gzip reader verifies the
// stream's checksum trailer.
func responseReader(resp *http.Response) (io.ReadCloser, error) {
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("reading gzip response: %w", err)
		}
		return gz, nil
	}
	return io.NopCloser(resp.Body), nil
}
