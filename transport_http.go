package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout        = 60 * time.Second
	defaultHTTPConnectTimeout = 5 * time.Second
	defaultHTTPTLSTimeout     = 5 * time.Second
)

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHTTPConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHTTPTLSTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHTTPTimeout,
	}
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTPTransport) {
		t.header.Add(key, value)
	}
}

// HTTPTransport issues requests over net/http and decodes JSON responses.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	header  http.Header
}

// NewHTTPTransport constructs a transport resolving relative urls against baseURL.
func NewHTTPTransport(baseURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  defaultHTTPClient(),
		header:  http.Header{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Do implements Transport.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (any, error) {
	target := t.resolve(req.URL)
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	contentType := ""
	switch {
	case method == http.MethodGet:
		if len(req.Params) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + encodeParams(req.Params).Encode()
		}
	case req.Body != nil:
		body = bytes.NewReader(req.Body)
		contentType = "application/json"
	case len(req.Params) > 0:
		body = strings.NewReader(encodeParams(req.Params).Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	for key, values := range t.header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.ID != "" {
		httpReq.Header.Set("X-Request-Id", req.ID)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	decoded := decodeBody(raw)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, URL: target, Body: decoded}
	}
	return decoded, nil
}

func (t *HTTPTransport) resolve(target string) string {
	if t.baseURL == "" || strings.Contains(target, "://") {
		return target
	}
	return t.baseURL + "/" + strings.TrimLeft(target, "/")
}

func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw)
	}
	return out
}

// encodeParams flattens params into form values. Nested maps use
// bracket notation (filter[name]=x); lists repeat the key.
func encodeParams(params map[string]any) url.Values {
	values := url.Values{}
	var walk func(prefix string, value any)
	walk = func(prefix string, value any) {
		switch v := value.(type) {
		case nil:
			values.Add(prefix, "")
		case map[string]any:
			keys := make([]string, 0, len(v))
			for key := range v {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				walk(prefix+"["+key+"]", v[key])
			}
		case []any:
			for _, item := range v {
				walk(prefix, item)
			}
		case []string:
			for _, item := range v {
				values.Add(prefix, item)
			}
		case time.Time:
			values.Add(prefix, v.Format(time.RFC3339Nano))
		default:
			values.Add(prefix, fmt.Sprint(v))
		}
	}
	for key, value := range params {
		walk(key, value)
	}
	return values
}
