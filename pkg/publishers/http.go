package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/remote-model/pkg/httpclient"
)

type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  httpclient.Client
	typ     string
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, _ Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	headers := httpclient.DefaultHeaders()
	for k, v := range cfg.HTTP.Headers {
		headers[k] = v
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: headers,
		client:  httpclient.NewRestyClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }
func (h *httpPublisher) Close() error { return nil }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := h.client.Send(ctx, h.url, h.method, httpclient.Structured(evt), httpclient.Options{Headers: h.headers})
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if _, err := httpclient.Parse(resp); err != nil {
		if fe, ok := httpclient.AsFetchError(err); ok {
			return fmt.Errorf("http response status %d: %s", fe.Status, readBodySnippet(resp.Body()))
		}
		return fmt.Errorf("http response: %w", err)
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

func (c *HTTPPublisherConfig) sanitized() *HTTPPublisherConfig {
	out := *c
	out.URL = strings.TrimSpace(out.URL)
	out.Method = strings.ToUpper(strings.TrimSpace(out.Method))
	if out.Method == "" {
		out.Method = httpDefaultMethod
	}
	out.Headers = sanitizeHeaders(out.Headers)
	if out.TimeoutSeconds <= 0 {
		out.TimeoutSeconds = httpDefaultTimeoutSeconds
	}
	return &out
}

func (c *HTTPPublisherConfig) validate() error {
	if c.URL == "" {
		return errors.New("http.url is required")
	}
	return nil
}
