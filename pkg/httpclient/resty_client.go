package httpclient

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
// A zero timeout leaves requests unbounded.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(timeout)}
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	c.SetTimeout(timeout)
	return c
}

// Send issues a single request. Transport failures are returned as *TransportError;
// any status code, including 4xx and 5xx, is a successful round trip.
func (r *RestyClient) Send(ctx context.Context, url, method string, payload Payload, opts Options) (Response, error) {
	if method == "" {
		method = http.MethodGet
	}

	desc := &RequestDescriptor{
		Method:  method,
		URL:     url,
		Headers: requestHeaders(opts.Headers, payload.Kind()),
	}

	body, err := payload.body(desc)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}

	req := r.client.R().SetContext(ctx)
	if len(desc.Headers) > 0 {
		req.SetHeaders(desc.Headers)
	}
	if len(opts.QueryParams) > 0 {
		req.SetQueryParams(opts.QueryParams)
	}
	if opts.BasicAuth != nil {
		req.SetBasicAuth(opts.BasicAuth.Username, opts.BasicAuth.Password)
	}
	if opts.AuthToken != "" {
		req.SetAuthToken(opts.AuthToken)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(desc.Method, desc.URL)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// requestHeaders copies explicit headers, or falls back to DefaultHeaders when
// none were given. Raw payloads never get the default Content-Type.
func requestHeaders(explicit map[string]string, kind PayloadKind) map[string]string {
	if len(explicit) > 0 {
		out := make(map[string]string, len(explicit))
		for k, v := range explicit {
			out[k] = v
		}
		return out
	}
	out := DefaultHeaders()
	if kind == KindRaw {
		delete(out, "Content-Type")
	}
	return out
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte              { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int           { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header(name string) string { return r.resp.Header().Get(name) }

func (r *restyResponseAdapter) Status() string {
	return statusText(r.resp.StatusCode(), r.resp.Status())
}

// statusText strips the numeric code from a status line such as "404 Not Found".
func statusText(code int, line string) string {
	text := strings.TrimSpace(strings.TrimPrefix(line, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}
