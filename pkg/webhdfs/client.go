package webhdfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/tonimelisma/webhdfs-go/internal/session"
)

// Filesystem API endpoint, on a different port from login.
const (
	apiPort   = "14443"
	apiPrefix = "/webhdfs/v1/"
)

const (
	userAgent       = "webhdfs-go/0.1"
	requestIDHeader = "X-Request-ID"
)

// Request describes one filesystem API call. Path is relative to the API
// root; a leading slash is ignored.
type Request struct {
	Op     string     // WebHDFS operation, e.g. LISTSTATUS
	Path   string     // remote path
	Method string     // defaults to GET
	Params url.Values // extra query parameters; "op" is always set from Op
	Header http.Header
	Body   io.Reader
}

// Response is a successful gateway response. Body is the full payload,
// which may be JSON or opaque file content.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client talks to one gateway as one user. It is safe for concurrent use;
// all operations share a single cached session.
type Client struct {
	user     string
	password string
	loginURL string
	apiURL   string

	httpClient   *http.Client
	sessions     *session.Cache
	sessionCheck SessionCheck
	metrics      *Metrics
	tracer       trace.Tracer
	logger       *slog.Logger

	// nowFunc is the session clock. Tests override it to expire sessions.
	nowFunc func() time.Time
}

// NewClient validates cfg and creates a Client. No network I/O happens until
// the first operation. httpClient may carry TLS settings and timeouts; its
// Jar, if any, is not used for the session cookie.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	host, err := cfg.validate()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	check := cfg.SessionCheck
	if check == nil {
		check = HasSessionCookies
	}

	c := &Client{
		user:         cfg.User,
		password:     cfg.Password,
		loginURL:     "https://" + net.JoinHostPort(host, loginPort) + loginPath,
		apiURL:       "https://" + net.JoinHostPort(host, apiPort) + apiPrefix,
		httpClient:   httpClient,
		sessionCheck: check,
		metrics:      cfg.Metrics,
		tracer:       newTracer(cfg.TracerProvider),
		logger:       logger,
		nowFunc:      time.Now,
	}

	c.sessions = session.NewCache(session.DefaultTTL, cfg.LoginTimeout, c.login, func() time.Time { return c.nowFunc() }, logger)

	return c, nil
}

// Do sends an authenticated request and returns the gateway's response.
// It logs in first if there is no current session. Failures are returned
// as typed errors and are never retried. A RemoteException body is an error
// whatever the status; any other non-2xx response, such as a proxy's HTML
// error page, is a *StatusError wrapping ErrUnexpectedStatus rather than a
// payload.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	reqID := uuid.NewString()

	ctx, span := c.startSpan(ctx, r, method, reqID)
	defer span.End()

	start := time.Now()
	resp, err := c.dispatch(ctx, r, method, reqID)
	c.metrics.recordRequest(r.Op, outcomeOf(err), time.Since(start))
	endSpan(span, resp, err)

	return resp, err
}

func (c *Client) dispatch(ctx context.Context, r *Request, method, reqID string) (*Response, error) {
	tok, err := c.sessions.Token(ctx)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, fmt.Errorf("%w: waiting for login: %w", ErrTransport, err)
		}

		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.operationURL(r), r.Body)
	if err != nil {
		return nil, fmt.Errorf("webhdfs: creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(requestIDHeader, reqID)

	// Caller headers override the defaults above, whatever their key casing.
	for k, vs := range r.Header {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}

	for _, ck := range tok.Cookies {
		req.AddCookie(ck)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			slog.String("op", r.Op),
			slog.String("method", method),
			slog.String("remote_path", r.Path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, r.Op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrTransport, r.Op, err)
	}

	if err := classifyResponse(resp.StatusCode, body); err != nil {
		c.logger.Debug("gateway reported failure",
			slog.String("op", r.Op),
			slog.String("remote_path", r.Path),
			slog.String("request_id", reqID),
			slog.Int("status", resp.StatusCode),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	c.logger.Debug("request succeeded",
		slog.String("op", r.Op),
		slog.String("method", method),
		slog.String("remote_path", r.Path),
		slog.String("request_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// operationURL builds the full API URL for r.
func (c *Client) operationURL(r *Request) string {
	q := url.Values{}
	for k, vs := range r.Params {
		q[k] = append([]string(nil), vs...)
	}

	q.Set("op", r.Op)

	return c.apiURL + encodePathSegments(normalizePath(r.Path)) + "?" + q.Encode()
}
