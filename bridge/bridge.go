// Package bridge implements the host side of the guest's only outbound
// capability: a synchronous HTTP call restricted to an allow-list of origins.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/net/http/httpguts"

	"github.com/runjs/runjs/wire"
)

const maxRedirects = 10

// Bridge performs allow-listed outbound HTTP calls. It holds no per-call
// state and never retries.
type Bridge struct {
	allow  AllowList
	client *resty.Client
	logger *zap.Logger
}

type settings struct {
	timeout   time.Duration
	transport http.RoundTripper
	logger    *zap.Logger
	userAgent string
}

// Option configures a Bridge.
type Option func(*settings)

// WithTimeout bounds each outbound call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.timeout = d
	}
}

// WithTransport replaces the network transport. Mostly useful in tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.transport = rt
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithUserAgent sets the User-Agent sent when the guest does not supply one.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		s.userAgent = ua
	}
}

// New builds a Bridge permitting only the given origins.
func New(origins []string, opts ...Option) (*Bridge, error) {
	allow, err := NewAllowList(origins)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	s := settings{
		logger:    zap.NewNop(),
		userAgent: "runjs",
	}
	for _, o := range opts {
		o(&s)
	}

	b := &Bridge{allow: allow, logger: s.logger}

	client := resty.New().
		SetTimeout(s.timeout).
		SetRetryCount(0).
		SetLogger(s.logger.Sugar()).
		SetHeader("User-Agent", s.userAgent).
		SetRedirectPolicy(resty.RedirectPolicyFunc(b.checkRedirect))
	if s.transport != nil {
		client.SetTransport(s.transport)
	}
	b.client = client

	return b, nil
}

// checkRedirect keeps every redirect hop inside the allow-list.
func (b *Bridge) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	o, err := originOf(req.URL)
	if err != nil || !b.allow.Allows(o) {
		return wire.OriginNotAllowed(req.URL.Scheme + "://" + req.URL.Host)
	}
	return nil
}

// Call validates req, checks its origin and performs it. Policy and
// validation failures happen before any network activity.
func (b *Bridge) Call(ctx context.Context, req wire.Request) (wire.Response, error) {
	if !httpguts.ValidHeaderFieldName(req.Method) {
		return wire.Response{}, wire.Malformed("method", "invalid method %q", req.Method)
	}

	headers, err := wire.NormalizeHeaders(req.Headers)
	if err != nil {
		return wire.Response{}, err
	}

	u, err := url.Parse(req.URI)
	if err != nil {
		return wire.Response{}, wire.Malformed("uri", "%v", err)
	}
	origin, err := originOf(u)
	if err != nil {
		return wire.Response{}, wire.Malformed("uri", "%v", err)
	}
	if !b.allow.Allows(origin) {
		b.logger.Warn("outbound call rejected",
			zap.String("origin", origin.String()),
			zap.String("method", req.Method))
		return wire.Response{}, wire.OriginNotAllowed(origin.String())
	}

	r := b.client.R().
		SetContext(ctx).
		SetHeaders(headers)
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(strings.ToUpper(req.Method), u.String())
	if err != nil {
		var policy *wire.Error
		if errors.As(err, &policy) {
			return wire.Response{}, policy
		}
		b.logger.Debug("outbound call failed",
			zap.String("origin", origin.String()),
			zap.Error(err))
		return wire.Response{}, wire.NetworkFailure(err)
	}

	b.logger.Debug("outbound call completed",
		zap.String("origin", origin.String()),
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	return toResponse(resp)
}

func toResponse(resp *resty.Response) (wire.Response, error) {
	out := wire.Response{
		Status:  uint16(resp.StatusCode()),
		Headers: make(map[string]string, len(resp.Header())),
	}
	for name, values := range resp.Header() {
		key := strings.ToLower(name)
		value, err := wire.ResponseHeaderValue(key, values)
		if err != nil {
			return wire.Response{}, err
		}
		out.Headers[key] = value
	}
	if body := resp.Body(); len(body) > 0 {
		out.Body = append([]byte(nil), body...)
	}
	return out, nil
}
