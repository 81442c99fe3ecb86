package rutracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/tinoosan/radiofetch/internal/data"
	"github.com/tinoosan/radiofetch/internal/metrics"
	"github.com/tinoosan/radiofetch/internal/search"
)

const defaultHost = "https://rutracker.net"

// The login form expects the submit button's localized label.
const magicLoginWord = "вход"

// Client is an authenticated rutracker session. The cookie jar holds the
// forum session; http.Client and the jar are safe for concurrent use, so a
// single Client serves all request drivers.
type Client struct {
	host   string
	client *http.Client
}

var _ search.Provider = (*Client)(nil)

// Login opens a session against the tracker and verifies the auth markers
// on the response page.
func Login(ctx context.Context, username, password string) (*Client, error) {
	return login(ctx, defaultHost, username, password)
}

func login(ctx context.Context, host, username, password string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{host: host, client: &http.Client{Jar: jar}}

	form := url.Values{}
	form.Set("login_username", username)
	form.Set("login_password", password)
	form.Set("login", magicLoginWord)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/forum/login.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rawHTML, status, err := c.do(req, "login")
	if err != nil {
		return nil, err
	}
	// A 5xx page carries no session markers; leave it retryable.
	if status >= 500 {
		return nil, fmt.Errorf("tracker login status %d", status)
	}
	if err := validateAuthState(string(rawHTML)); err != nil {
		return nil, fmt.Errorf("%w: %w", data.ErrPermanent, err)
	}
	return c, nil
}

// FindAll searches the tracker and returns candidates ranked best-first.
func (c *Client) FindAll(ctx context.Context, query string) ([]data.TopicData, error) {
	u := fmt.Sprintf("%s/forum/tracker.php?nm=%s", c.host, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	rawHTML, status, err := c.do(req, "search")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		if status >= 500 {
			return nil, fmt.Errorf("tracker search status %d", status)
		}
		return nil, fmt.Errorf("%w: tracker search status %d", data.ErrPermanent, status)
	}
	if err := validateAuthState(string(rawHTML)); err != nil {
		return nil, fmt.Errorf("%w: %w", data.ErrPermanent, err)
	}
	return parseSearchResults(string(rawHTML))
}

// DownloadTorrent fetches the torrent-file bytes of a candidate.
func (c *Client) DownloadTorrent(ctx context.Context, id data.DownloadId) ([]byte, error) {
	u := fmt.Sprintf("%s/forum/dl.php?t=%d", c.host, uint64(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	body, status, err := c.do(req, "download_torrent")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		if status >= 500 {
			return nil, fmt.Errorf("tracker dl status %d", status)
		}
		if authErr := validateAuthState(string(body)); authErr != nil {
			return nil, fmt.Errorf("%w: %w", data.ErrPermanent, authErr)
		}
		return nil, fmt.Errorf("%w: tracker dl status %d", data.ErrPermanent, status)
	}
	return body, nil
}

// CheckConnection verifies the session is still authenticated.
func (c *Client) CheckConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host, nil)
	if err != nil {
		return err
	}
	rawHTML, status, err := c.do(req, "check_connection")
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("tracker status %d", status)
	}
	return validateAuthState(string(rawHTML))
}

func (c *Client) do(req *http.Request, op string) ([]byte, int, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.SearchErrors.WithLabelValues(op).Inc()
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.SearchErrors.WithLabelValues(op).Inc()
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
