// Package provider is a thin HTTP client for a mail.tm compatible
// disposable mailbox API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
)

// httpClient allows http.Client to be swapped out in tests.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the provider REST API. Requests that need
// authentication take the bearer token explicitly, since every identity
// carries its own.
type Client struct {
	baseURL    string
	httpClient httpClient
}

// NewClient creates a provider client for baseURL
// (e.g., https://api.mail.tm). A non-positive timeout means 30 seconds.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("parsing provider base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// sameOrigin reports whether target has the base URL's scheme and host.
func (c *Client) sameOrigin(target string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

// BaseURL returns the provider root URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Domains lists the domains new accounts can be created under.
func (c *Client) Domains(ctx context.Context) ([]Domain, error) {
	var res collection[Domain]
	if err := c.doJSON(ctx, http.MethodGet, "/domains", "", nil, &res); err != nil {
		return nil, err
	}
	return res.Members, nil
}

// CreateAccount registers address with password.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (*Account, error) {
	var acct Account
	body := credentials{Address: address, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/accounts", "", body, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Token issues a bearer token for an existing account.
func (c *Client) Token(ctx context.Context, address, password string) (*Token, error) {
	var tok Token
	body := credentials{Address: address, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/token", "", body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Me returns the account the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*Account, error) {
	var acct Account
	if err := c.doJSON(ctx, http.MethodGet, "/me", token, nil, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// DeleteAccount removes the remote account.
func (c *Client) DeleteAccount(ctx context.Context, token, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/accounts/"+url.PathEscape(id), token, nil, nil)
}

// Messages lists the first page of messages, newest first.
func (c *Client) Messages(ctx context.Context, token string) ([]model.MessageSummary, error) {
	var res collection[model.MessageSummary]
	if err := c.doJSON(ctx, http.MethodGet, "/messages", token, nil, &res); err != nil {
		return nil, err
	}
	return res.Members, nil
}

// Message fetches the full message, including bodies and attachment metadata.
func (c *Client) Message(ctx context.Context, token, id string) (*model.MessageDetail, error) {
	var msg model.MessageDetail
	if err := c.doJSON(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), token, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageSource fetches the raw RFC 5322 source. The provider normally
// wraps it in a JSON envelope; a bare text response is returned as is.
func (c *Client) MessageSource(ctx context.Context, token, id string) (string, error) {
	path := "/messages/" + url.PathEscape(id) + "/source"
	raw, err := c.doRaw(ctx, http.MethodGet, path, token)
	if err != nil {
		return "", err
	}

	var env sourceEnvelope
	if json.Unmarshal(raw, &env) == nil && env.Data != "" {
		return env.Data, nil
	}
	return string(raw), nil
}

// Download fetches a binary payload such as an attachment. downloadURL is
// either relative to the base URL or absolute. The token is only sent to
// the provider's own host.
func (c *Client) Download(ctx context.Context, token, downloadURL string) ([]byte, error) {
	return c.doRaw(ctx, http.MethodGet, downloadURL, token)
}

// do builds and executes a request. path may be absolute; otherwise it is
// joined to the base URL. The bearer token is dropped for absolute URLs
// on another host.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	token string,
	body interface{},
) (*http.Response, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	} else if token != "" && !c.sameOrigin(path) {
		log.Debug().Str("module", "provider").Str("path", path).Msg("Not sending token to foreign host")
		token = ""
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/ld+json, application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("module", "provider").Str("method", method).Str("path", path).
		Msg("Provider request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}
	return resp, nil
}

// doRaw performs a request and returns the body of a successful response.
func (c *Client) doRaw(ctx context.Context, method, path, token string) ([]byte, error) {
	resp, err := c.do(ctx, method, path, token, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if err := checkStatus(resp, method, path, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// doJSON performs a request and decodes a JSON response into result.
// A nil result or a 204 response skips decoding.
func (c *Client) doJSON(
	ctx context.Context,
	method string,
	path string,
	token string,
	body interface{},
	result interface{},
) error {
	resp, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := checkStatus(resp, method, path, respBody); err != nil {
		return err
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

// checkStatus converts a non-2xx response into an *APIError.
func checkStatus(resp *http.Response, method, path string, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
	}
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil {
		apiErr.Description = errResp.description()
	}
	return apiErr
}
