package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type capturedRequest struct {
	method string
	header http.Header
	query  string
	body   string
}

func newCaptureServer(t *testing.T, status int, contentType, respBody string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		captured.method = r.Method
		captured.header = r.Header.Clone()
		captured.query = r.URL.RawQuery
		captured.body = string(raw)
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestRestyClientSendsJSONWithDefaultHeaders(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, MediaTypeJSON, `{"ok":true}`)

	resp, err := NewRestyClient(0).Send(context.Background(), srv.URL, http.MethodPut, Structured(map[string]any{"a": 1}), Options{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || resp.Status() != "OK" {
		t.Fatalf("unexpected status %d %q", resp.StatusCode(), resp.Status())
	}
	if got.method != http.MethodPut {
		t.Fatalf("method = %s", got.method)
	}
	if got.body != `{"a":1}` {
		t.Fatalf("body = %s", got.body)
	}
	if ct := got.header.Get("Content-Type"); ct != MediaTypeJSON {
		t.Fatalf("Content-Type = %q", ct)
	}
	if acc := got.header.Get("Accept"); acc != MediaTypeJSON {
		t.Fatalf("Accept = %q", acc)
	}
}

func TestRestyClientExplicitHeadersReplaceDefaults(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, "", "")

	_, err := NewRestyClient(0).Send(context.Background(), srv.URL, http.MethodPost, Text("raw"), Options{
		Headers:     map[string]string{"X-Test": "1", "Content-Type": "text/plain"},
		QueryParams: map[string]string{"q": "v"},
		AuthToken:   "tok",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.body != "raw" {
		t.Fatalf("body = %q", got.body)
	}
	if got.header.Get("X-Test") != "1" {
		t.Fatalf("missing explicit header")
	}
	if acc := got.header.Get("Accept"); acc == MediaTypeJSON {
		t.Fatalf("default Accept applied despite explicit headers")
	}
	if got.header.Get("Authorization") != "Bearer tok" {
		t.Fatalf("Authorization = %q", got.header.Get("Authorization"))
	}
	if got.query != "q=v" {
		t.Fatalf("query = %q", got.query)
	}
}

func TestRestyClientRawPayloadSkipsDefaultContentType(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK, "", "")

	_, err := NewRestyClient(0).Send(context.Background(), srv.URL, http.MethodPost, Raw([]byte{0x00, 0x01, 0x02}), Options{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.body != "\x00\x01\x02" {
		t.Fatalf("raw body altered: %q", got.body)
	}
	if ct := got.header.Get("Content-Type"); ct == MediaTypeJSON {
		t.Fatalf("raw payload got default JSON Content-Type")
	}
	if got.header.Get("Accept") != MediaTypeJSON {
		t.Fatalf("default Accept missing")
	}
}

func TestRestyClientEmptyMethodDefaultsToGet(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusNoContent, "", "")

	if _, err := NewRestyClient(0).Send(context.Background(), srv.URL, "", Empty(), Options{}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.method != http.MethodGet || got.body != "" {
		t.Fatalf("unexpected request %s %q", got.method, got.body)
	}
}

func TestRestyClientErrorStatusIsNotTransportError(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusNotFound, MediaTypeJSON, `{"error":"x"}`)

	resp, err := NewRestyClient(0).Send(context.Background(), srv.URL, http.MethodGet, Empty(), Options{})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.StatusCode() != http.StatusNotFound || resp.Status() != "Not Found" {
		t.Fatalf("unexpected status %d %q", resp.StatusCode(), resp.Status())
	}
}

func TestRestyClientConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRestyClient(0).Send(context.Background(), url, http.MethodGet, Empty(), Options{})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if !IsTransportError(err) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if !strings.Contains(err.Error(), "GET") {
		t.Fatalf("error should mention method: %v", err)
	}
}

func TestOptionsIsZero(t *testing.T) {
	if !(Options{}).IsZero() {
		t.Fatalf("empty options should be zero")
	}
	if (Options{AuthToken: "x"}).IsZero() {
		t.Fatalf("options with token should not be zero")
	}
}

func TestStatusText(t *testing.T) {
	if got := statusText(404, "404 Not Found"); got != "Not Found" {
		t.Fatalf("statusText = %q", got)
	}
	if got := statusText(500, ""); got != "Internal Server Error" {
		t.Fatalf("statusText fallback = %q", got)
	}
}
