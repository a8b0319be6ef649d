package webhdfs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the credentials and gateway address for a Client.
// Only the host of URL is used: the login and filesystem endpoints live on
// fixed ports of that host, so the scheme, port and path of URL are not
// used, but the port must still be present.
type Config struct {
	User     string `validate:"required"`
	Password string `validate:"required"`
	URL      string `validate:"required"`

	// LoginTimeout bounds one login exchange, independent of the contexts of
	// the callers waiting on it. Zero selects session.DefaultLoginTimeout.
	LoginTimeout time.Duration `validate:"-"`

	// SessionCheck decides whether the cookies returned by the login exchange
	// represent an established session. Nil selects HasSessionCookies.
	SessionCheck SessionCheck `validate:"-"`

	// Metrics is optional; nil disables metric collection.
	Metrics *Metrics `validate:"-"`

	// TracerProvider is optional; nil selects the global otel provider.
	TracerProvider trace.TracerProvider `validate:"-"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// validate checks required fields and extracts the gateway host from URL.
func (c *Config) validate() (string, error) {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			missing := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				missing = append(missing, strings.ToLower(fe.Field()))
			}

			return "", fmt.Errorf("%w: missing %s", ErrConfig, strings.Join(missing, ", "))
		}

		return "", fmt.Errorf("%w: %w", ErrConfig, err)
	}

	return gatewayHost(c.URL)
}

// gatewayHost parses raw as scheme://host:port[/path] and returns the host.
func gatewayHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: parsing URL: %w", ErrConfig, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: URL %q must have the form scheme://host:port", ErrConfig, raw)
	}

	if u.Hostname() == "" || u.Port() == "" {
		return "", fmt.Errorf("%w: URL %q must include a host and a port", ErrConfig, raw)
	}

	return u.Hostname(), nil
}
