// Package github wraps the GitHub REST API calls the index service needs.
//
// The client is bound to one request's credential: [Login] authenticates the
// credential against the API and returns a Client exposing the listing,
// search, release, and asset operations. Errors are classified into the
// package sentinels so callers can translate them without inspecting HTTP
// status codes.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ghindex/ghindex/pkg/httputil"
)

// DefaultBaseURL is the public GitHub REST endpoint. Tests and GitHub
// Enterprise deployments override it via config.
const DefaultBaseURL = "https://api.github.com"

const (
	httpTimeout = 30 * time.Second
	pageSize    = 100
	// maxSearchPages caps code-search pagination; the search API never
	// returns more than 1000 results per query.
	maxSearchPages = 10
)

var (
	// ErrAuth is returned when the API rejects the credential or reports
	// no identity for it.
	ErrAuth = errors.New("authentication rejected")

	// ErrNotFound is returned when a resource doesn't exist upstream.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, unexpected statuses).
	ErrNetwork = errors.New("network error")
)

// Credential is one request's inbound identity, forwarded upstream.
// Either Username/Password or Token is set, never both.
// Credentials live for a single request and are never persisted.
type Credential struct {
	Username string
	Password string
	Token    string
}

// AccessToken returns the value used as an access-token query parameter on
// authorized download URLs: the token, or the password when no token is set.
func (c Credential) AccessToken() string {
	if c.Token != "" {
		return c.Token
	}
	return c.Password
}

// Client provides access to the GitHub API on behalf of one authenticated
// credential.
type Client struct {
	http    *http.Client
	baseURL string
	cred    Credential
	user    *User
}

// Login authenticates cred against the API and returns a bound client.
// Pass an empty baseURL to use [DefaultBaseURL]. A rejected credential or an
// absent current user yields [ErrAuth].
func Login(ctx context.Context, baseURL string, cred Credential) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: baseURL,
		cred:    cred,
	}

	var user User
	if err := c.get(ctx, c.baseURL+"/user", &user); err != nil {
		if errors.Is(err, ErrAuth) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: bad credentials", ErrAuth)
		}
		return nil, err
	}
	if user.Login == "" {
		return nil, fmt.Errorf("%w: no user for credential", ErrAuth)
	}
	c.user = &user
	return c, nil
}

// Me returns the authenticated user.
func (c *Client) Me() *User {
	return c.user
}

// Credential returns the credential this client is bound to.
func (c *Client) Credential() Credential {
	return c.cred
}

// ListOwnRepos enumerates all repositories the authenticated user can see,
// including private and organization repositories (type=all).
func (c *Client) ListOwnRepos(ctx context.Context) ([]Repo, error) {
	var all []Repo
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/user/repos?type=all&per_page=%d&page=%d", c.baseURL, pageSize, page)
		var repos []Repo
		if err := c.get(ctx, u, &repos); err != nil {
			return nil, err
		}
		all = append(all, repos...)
		if len(repos) < pageSize {
			return all, nil
		}
	}
}

// Organizations lists the organizations the authenticated user belongs to.
func (c *Client) Organizations(ctx context.Context) ([]Org, error) {
	var all []Org
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/user/orgs?per_page=%d&page=%d", c.baseURL, pageSize, page)
		var orgs []Org
		if err := c.get(ctx, u, &orgs); err != nil {
			return nil, err
		}
		all = append(all, orgs...)
		if len(orgs) < pageSize {
			return all, nil
		}
	}
}

// SearchCode runs a code-search query and returns all result items.
// Search may over-return; callers filter by owner where exactness matters.
func (c *Client) SearchCode(ctx context.Context, query string) ([]CodeResult, error) {
	var all []CodeResult
	for page := 1; page <= maxSearchPages; page++ {
		u := fmt.Sprintf("%s/search/code?q=%s&per_page=%d&page=%d",
			c.baseURL, url.QueryEscape(query), pageSize, page)
		var resp searchResponse
		if err := c.get(ctx, u, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Items...)
		if len(all) >= resp.TotalCount || len(resp.Items) < pageSize {
			return all, nil
		}
	}
	return all, nil
}

// Releases lists the releases of a repository given its full name
// ("owner/repo"), in the API's default (most recent first) order.
func (c *Client) Releases(ctx context.Context, fullName string) ([]Release, error) {
	var all []Release
	for page := 1; ; page++ {
		u := fmt.Sprintf("%s/repos/%s/releases?per_page=%d&page=%d", c.baseURL, fullName, pageSize, page)
		var releases []Release
		if err := c.get(ctx, u, &releases); err != nil {
			return nil, err
		}
		all = append(all, releases...)
		if len(releases) < pageSize {
			return all, nil
		}
	}
}

// StreamAsset performs an authorized GET of a binary asset URL and returns
// the response body for streaming. The caller must close the body. A non-OK
// upstream status yields [ErrNotFound].
func (c *Client) StreamAsset(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: asset returned status %d", ErrNotFound, resp.StatusCode)
	}
	return resp.Body, nil
}

// get performs a JSON GET with retries for transient failures.
func (c *Client) get(ctx context.Context, url string, v any) error {
	return httputil.RetryWithBackoff(ctx, func() error {
		body, err := c.doRequest(ctx, url)
		if err != nil {
			return err
		}
		defer body.Close()
		return json.NewDecoder(body).Decode(v)
	})
}

func (c *Client) doRequest(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) authorize(req *http.Request) {
	switch {
	case c.cred.Token != "":
		req.Header.Set("Authorization", "Bearer "+c.cred.Token)
	case c.cred.Username != "":
		req.SetBasicAuth(c.cred.Username, c.cred.Password)
	}
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, code)
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
