package webhdfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Login endpoint. The gateway serves form login on its own TLS port,
// separate from the filesystem API.
const (
	loginPort = "8443"
	loginPath = "/j_security_check"
)

// MinSessionCookies is how many cookies the gateway sets when form login
// establishes a session. The gateway answers 200 for rejected credentials
// too, so the cookie count is the only success signal it gives.
const MinSessionCookies = 2

// SessionCheck reports whether the cookies captured from a login exchange
// represent an established session.
type SessionCheck func(cookies []*http.Cookie) bool

// HasSessionCookies is the default SessionCheck: a session exists when the
// gateway set at least MinSessionCookies cookies.
func HasSessionCookies(cookies []*http.Cookie) bool {
	return len(cookies) >= MinSessionCookies
}

// login posts the credentials to the form-login endpoint and returns the
// cookies the gateway set. Each call uses a fresh cookie jar so a rejected
// login never inherits cookies from an earlier session.
func (c *Client) login(ctx context.Context) ([]*http.Cookie, error) {
	c.logger.Info("logging in",
		slog.String("user", c.user),
		slog.String("url", c.loginURL),
	)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("webhdfs: creating cookie jar: %w", err)
	}

	target, err := url.Parse(c.loginURL)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: parsing login URL: %w", err)
	}

	form := url.Values{
		"j_username": {c.user},
		"j_password": {c.password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("webhdfs: creating login request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	hc := *c.httpClient
	hc.Jar = jar

	resp, err := hc.Do(req)
	if err != nil {
		c.metrics.recordLogin(loginResultError)
		c.logger.Warn("login request failed", slog.String("error", err.Error()))

		return nil, fmt.Errorf("%w: login: %w", ErrTransport, err)
	}

	// The status code carries no signal; drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	cookies := jar.Cookies(target)

	if !c.sessionCheck(cookies) {
		c.metrics.recordLogin(loginResultRejected)
		c.logger.Warn("login rejected by gateway",
			slog.String("user", c.user),
			slog.Int("status", resp.StatusCode),
			slog.Int("cookie_count", len(cookies)),
		)

		return nil, &LoginError{Message: loginFailedMessage, CookieCount: len(cookies)}
	}

	c.metrics.recordLogin(loginResultSuccess)
	c.logger.Info("login succeeded",
		slog.String("user", c.user),
		slog.Int("cookie_count", len(cookies)),
	)

	return cookies, nil
}
