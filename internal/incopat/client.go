// Package incopat is the HTTP client for the patent database. It
// implements the pipeline's fetch and search/detail capabilities over a
// logged-in cookie session, classifying every failure into the shared
// taxonomy so the stage handlers stay thin.
package incopat

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cxip/patent-pipeline/internal/common"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/141.0.0.0 Safari/537.36"

// markers the site embeds in throttled / logged-out responses
const (
	throttleMarker = "访问过于频繁"
	loginMarker    = "loginBtn"
)

// Config for the database session.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client holds one authenticated session. The database login is
// single-session and stateful, which is why the pipeline runs one
// worker per stage.
type Client struct {
	http     *resty.Client
	cfg      Config
	log      *slog.Logger
	loggedIn bool
}

func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	jar, _ := cookiejar.New(nil)
	httpc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetCookieJar(jar).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Origin", cfg.BaseURL).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Client{http: httpc, cfg: cfg, log: logger}
}

// Login establishes the cookie session. Called lazily before the first
// request and again whenever the session marker says we were logged out.
func (c *Client) Login(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": c.cfg.Username,
			"password": c.cfg.Password,
		}).
		Post("/login")
	if err != nil {
		return fmt.Errorf("login request: %w", common.ErrTransport)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("login status %d: %w", resp.StatusCode(), common.ErrTransport)
	}
	if strings.Contains(resp.String(), loginMarker) {
		return fmt.Errorf("credentials rejected: %w", common.ErrUnavailable)
	}
	c.loggedIn = true
	c.log.Info("incopat.logged_in", "user", c.cfg.Username)
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	return c.Login(ctx)
}

// classify maps a resty outcome onto the failure taxonomy. The body is
// inspected because the site throttles with a 200 + marker text.
func classify(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %v: %w", op, err, common.ErrTransport)
	}
	switch {
	case resp.StatusCode() == http.StatusTooManyRequests,
		strings.Contains(resp.String(), throttleMarker):
		return fmt.Errorf("%s: %w", op, common.ErrRateLimited)
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	case resp.StatusCode() >= 400:
		return fmt.Errorf("%s: status %d: %w", op, resp.StatusCode(), common.ErrTransport)
	}
	return nil
}

// apiEnvelope is the common {status, data} wrapper of the detail APIs.
type apiEnvelope struct {
	Status bool           `json:"status"`
	Msg    string         `json:"msg"`
	Data   map[string]any `json:"data"`
}
