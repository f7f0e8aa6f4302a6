// Package webdav lists remote WebDAV collections with PROPFIND.
package webdav

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	MethodPropfind = "PROPFIND"

	requestTimeout = 30 * time.Second
)

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 207 Multi-Status or any 2xx.
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusMultiStatus || (r.StatusCode >= 200 && r.StatusCode < 300)
}

//go:generate mockgen -destination=mocks/mock_doer.go -package=mocks davlibrary/internal/webdav Doer

// Doer issues a single request against the WebDAV server.
type Doer interface {
	Do(ctx context.Context, method, rawURL string, header http.Header, body io.Reader) (*Response, error)
}

// Credentials for HTTP Basic authentication.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Client is the HTTP transport for a single WebDAV server. It holds no
// per-call state and is safe for concurrent use.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
	stream  *http.Client // no overall timeout; bodies may be long-lived
}

// NewClient builds a client for baseURL (scheme://host[:port]).
//
// Certificate verification is disabled: NAS devices commonly serve
// self-signed certificates and the server is trusted by configuration.
func NewClient(baseURL string, creds Credentials) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		stream: &http.Client{Transport: transport},
	}
}

func (c *Client) FileURL(path string) string {
	return FileURL(c.baseURL, path)
}

// FileURL returns the absolute URL of a server path, percent-encoding each segment.
func FileURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + escapePath(path)
}

// Do sends a request. A non-nil error is always a *TransportError; HTTP
// status handling is left to the caller.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body io.Reader) (*Response, error) {
	resp, err := c.Open(ctx, method, rawURL, header, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Open sends a request and returns the unread response. The caller must
// close the body.
func (c *Client) Open(ctx context.Context, method, rawURL string, header http.Header, body io.Reader) (*http.Response, error) {
	return c.send(ctx, c.http, method, rawURL, header, body)
}

// Stream issues an authenticated GET whose body is bounded only by ctx.
// The caller must close the body.
func (c *Client) Stream(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	return c.send(ctx, c.stream, http.MethodGet, rawURL, header, nil)
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, rawURL string, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.creds.Username != "" {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}
	return resp, nil
}

func escapePath(p string) string {
	if p == "" {
		return "/"
	}
	return (&url.URL{Path: p}).EscapedPath()
}
