package bridge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gabe/mobwatch/internal/protocol"
)

const maxResponseBytes = 8 << 20

// HTTPSource polls GET <endpoint>/events?since=<cursor> and posts commands
// to <endpoint>/commands.
type HTTPSource struct {
	endpoint  string
	client    *http.Client
	validator *protocol.Validator
}

// HTTPOption configures an HTTPSource
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// NewHTTPSource creates a source for endpoint, which must be an absolute
// http or https URL.
func NewHTTPSource(endpoint string, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must be http or https", endpoint)
	}

	s := &HTTPSource{
		endpoint:  strings.TrimRight(endpoint, "/"),
		client:    &http.Client{},
		validator: protocol.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Endpoint returns the base URL
func (s *HTTPSource) Endpoint() string {
	return s.endpoint
}

func (s *HTTPSource) Poll(ctx context.Context, cursor uint64) (protocol.Batch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/events?since="+strconv.FormatUint(cursor, 10), nil)
	if err != nil {
		return protocol.Batch{}, fmt.Errorf("failed to build poll request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return protocol.Batch{}, fmt.Errorf("failed to poll events: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return protocol.Batch{}, fmt.Errorf("failed to read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return protocol.Batch{}, fmt.Errorf("poll returned %s", resp.Status)
	}

	return s.validator.DecodeBatch(body)
}

func (s *HTTPSource) Send(ctx context.Context, cmd protocol.Command) error {
	data, err := s.validator.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/commands", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(detail))
	if msg == "" {
		return fmt.Errorf("%w: %s", ErrCommandRejected, resp.Status)
	}
	return fmt.Errorf("%w: %s: %s", ErrCommandRejected, resp.Status, msg)
}
