package hospitalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"medqueue-portal/pkg/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const maxResponseBody = 4 << 20

// Client talks to the hospital REST API. A Client without a TokenStore sends
// anonymous requests; WithTokens binds it to one caller's credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
	metrics    *metrics.Metrics
	tokens     TokenStore
	refreshes  *singleflight.Group
	now        func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, log *logrus.Logger, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:       log,
		metrics:   m,
		refreshes: &singleflight.Group{},
		now:       time.Now,
	}
}

// WithTokens returns a copy of the client that authenticates with store.
// The copy shares the HTTP transport and the refresh de-duplication group.
func (c *Client) WithTokens(store TokenStore) *Client {
	cp := *c
	cp.tokens = store
	return &cp
}

// request sends an optionally authenticated request. A 401 triggers one
// refresh-and-retry; if the refresh fails the tokens are cleared.
func (c *Client) request(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	return c.do(ctx, method, path, payload, true)
}

// do sends the request. With retryOn401 unset a 401 is final, so a call
// never refreshes more than once.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}, retryOn401 bool) ([]byte, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode request: %v", ErrInternal, err)
		}
		body = encoded
	}

	access := c.accessToken(ctx)
	status, respBody, err := c.send(ctx, method, path, body, access)
	if err != nil {
		return nil, err
	}

	if isUnauthorized(status) && c.tokens != nil {
		if !retryOn401 {
			return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, newAPIError(status, respBody).Message)
		}
		if !c.refresh(ctx) {
			return nil, ErrUnauthenticated
		}
		status, respBody, err = c.send(ctx, method, path, body, c.accessToken(ctx))
		if err != nil {
			return nil, err
		}
		if isUnauthorized(status) {
			return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, newAPIError(status, respBody).Message)
		}
	}

	if status < 200 || status >= 300 {
		return nil, newAPIError(status, respBody)
	}
	return respBody, nil
}

// safeRequest refreshes first when no usable access token is held, then
// behaves like request. A call that already refreshed does not refresh again
// on a 401.
func (c *Client) safeRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if c.tokens == nil {
		return nil, ErrUnauthenticated
	}
	access := c.accessToken(ctx)
	if access == "" || tokenExpired(access, c.now()) {
		if !c.refresh(ctx) {
			return nil, ErrUnauthenticated
		}
		return c.do(ctx, method, path, payload, false)
	}
	return c.request(ctx, method, path, payload)
}

func (c *Client) accessToken(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	tokens, err := c.tokens.Tokens(ctx)
	if err != nil {
		c.log.Warnf("Failed to read upstream tokens: %+v", err)
		return ""
	}
	return tokens.Access
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, access string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(method, endpointLabel(path), 0, time.Since(start))
		return 0, nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveUpstream(method, endpointLabel(path), resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: failed to read response: %v", ErrInternal, err)
	}
	return resp.StatusCode, respBody, nil
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// refresh exchanges the stored refresh token for a new access token.
// Concurrent refreshes of the same refresh token share one upstream call.
func (c *Client) refresh(ctx context.Context) bool {
	if c.tokens == nil {
		return false
	}
	tokens, err := c.tokens.Tokens(ctx)
	if err != nil {
		c.log.Warnf("Failed to read upstream tokens: %+v", err)
		return false
	}
	if tokens.Refresh == "" {
		return false
	}

	v, err, _ := c.refreshes.Do(tokens.Refresh, func() (interface{}, error) {
		return c.exchangeRefresh(ctx, tokens.Refresh)
	})
	if err != nil {
		c.log.Warnf("Failed to refresh upstream token: %+v", err)
		if clearErr := c.tokens.ClearTokens(ctx); clearErr != nil {
			c.log.Warnf("Failed to clear upstream tokens: %+v", clearErr)
		}
		return false
	}

	next := v.(Tokens)
	if err := c.tokens.SaveTokens(ctx, next); err != nil {
		c.log.Warnf("Failed to save refreshed tokens: %+v", err)
		return false
	}
	return true
}

func (c *Client) exchangeRefresh(ctx context.Context, refreshToken string) (Tokens, error) {
	body, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		return Tokens{}, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	status, respBody, err := c.send(ctx, http.MethodPost, "/token/refresh/", body, "")
	if err != nil {
		return Tokens{}, err
	}
	if status < 200 || status >= 300 {
		return Tokens{}, newAPIError(status, respBody)
	}

	var resp refreshResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || resp.Access == "" {
		return Tokens{}, fmt.Errorf("%w: refresh response without access token", ErrInvalidResponse)
	}
	next := Tokens{Access: resp.Access, Refresh: refreshToken}
	if resp.Refresh != "" {
		next.Refresh = resp.Refresh
	}
	return next, nil
}

var numericSegment = regexp.MustCompile(`/\d+(/|$)`)

// endpointLabel turns "/appointments/12/start_consultation/?x=1" into
// "/appointments/{id}/start_consultation/" for metric labels.
func endpointLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return numericSegment.ReplaceAllString(path, "/{id}$1")
}

func decodeJSON(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return nil
}
