// Package httpclient wraps resty with the behavior both auth backends
// need: a per-instance bearer token, typed API errors, and response
// interception for server-signaled token rotation and forced sign-out.
//
// Each backend service owns its own Client. Nothing here is process
// global, so two services never fight over default headers.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
)

// RotatedTokenHeader carries a silently rotated access token.
const RotatedTokenHeader = "New-Access-Token"

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Body)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// Hooks receive session-invalidation and token-rotation signals pulled
// out of responses. They are armed only while the owning service is
// authenticated.
type Hooks struct {
	// OnTokenRotated is called with the replacement token whenever a
	// response carries the rotation header.
	OnTokenRotated func(token string)
	// OnUnauthorized is called when a response comes back 401.
	OnUnauthorized func()
}

// Client is an authenticated HTTP client for one backend service.
type Client struct {
	r *resty.Client

	mu    sync.Mutex
	hooks Hooks
}

// New creates a client. The response middleware is installed once and
// consults the currently armed hooks on every response.
func New() *Client {
	c := &Client{r: resty.New()}

	c.r.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.mu.Lock()
		hooks := c.hooks
		c.mu.Unlock()

		if token := resp.Header().Get(RotatedTokenHeader); token != "" && hooks.OnTokenRotated != nil {
			hooks.OnTokenRotated(token)
		}
		if resp.StatusCode() == http.StatusUnauthorized && hooks.OnUnauthorized != nil {
			hooks.OnUnauthorized()
		}
		return nil
	})

	return c
}

// SetBearerToken attaches the token to every subsequent request.
func (c *Client) SetBearerToken(token string) {
	c.r.SetAuthToken(token)
}

// ClearBearerToken removes the bearer token from subsequent requests.
func (c *Client) ClearBearerToken() {
	c.r.SetAuthToken("")
	c.r.Header.Del("Authorization")
}

// ArmHooks registers rotation/unauthorized handlers. The unauthorized
// handler typically disarms the hooks again (via DisarmHooks) as part
// of the forced sign-out, which is what limits it to firing once.
func (c *Client) ArmHooks(h Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = h
}

// DisarmHooks removes all registered handlers.
func (c *Client) DisarmHooks() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = Hooks{}
}

// Get issues a GET and decodes the JSON response body into out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	req := c.r.R().SetContext(ctx)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Get(url)
	return checkResponse(resp, err)
}

// Post issues a JSON POST and decodes the response body into out.
func (c *Client) Post(ctx context.Context, url string, body, out any) error {
	req := c.r.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(url)
	return checkResponse(resp, err)
}

// Put issues a JSON PUT and decodes the response body into out.
func (c *Client) Put(ctx context.Context, url string, body, out any) error {
	req := c.r.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Put(url)
	return checkResponse(resp, err)
}

// PostForHeaders issues a JSON POST and returns the response headers;
// used by the refresh flow, which reads its result from a header
// rather than the body.
func (c *Client) PostForHeaders(ctx context.Context, url string, body any) (http.Header, error) {
	req := c.r.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(url)
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return resp.Header(), nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}
