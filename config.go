package mcp

import (
	"os"

	"github.com/GordonDrop/mcpkit/config"
	"github.com/GordonDrop/mcpkit/middleware"
	"github.com/GordonDrop/mcpkit/transport"
)

// NewFromConfig creates a builder from cfg: identity, logger (on stderr,
// stdout carries the protocol), transport and the middleware stack the
// configuration asks for. opts are applied last.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger(os.Stderr)
	b := New(WithName(cfg.Name), WithVersion(cfg.Version), WithLogger(logger))

	switch cfg.Transport {
	case config.TransportHTTP:
		httpOpts := []transport.HTTPOption{transport.WithHTTPLogger(logger)}
		if cfg.MaxLineSize > 0 {
			httpOpts = append(httpOpts, transport.WithMaxBodySize(int64(cfg.MaxLineSize)))
		}
		b.Transport(transport.NewHTTP(cfg.Addr, httpOpts...))
	case config.TransportWebSocket:
		b.Transport(transport.NewWebSocket(cfg.Addr, transport.WithWebSocketLogger(logger)))
	default:
		stdioOpts := []transport.StdioOption{transport.WithLogger(logger)}
		if cfg.MaxLineSize > 0 {
			stdioOpts = append(stdioOpts, transport.WithMaxLineSize(cfg.MaxLineSize))
		}
		b.Transport(transport.NewStdio(stdioOpts...))
	}

	b.Use(configMiddleware(cfg, logger)...)

	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

func configMiddleware(cfg *config.Config, logger Logger) []Middleware {
	mws := []Middleware{
		middleware.RequestID(),
		middleware.Logging(logger),
	}
	if cfg.RateLimit.Rate > 0 {
		mws = append(mws, middleware.RateLimit(cfg.RateLimit.Rate, cfg.RateLimit.Burst,
			middleware.WithRateLimitLogger(logger)))
	}
	if cfg.MaxInputSize > 0 {
		mws = append(mws, middleware.SizeLimit(int64(cfg.MaxInputSize),
			middleware.WithSizeLimitLogger(logger)))
	}
	if cfg.RequestTimeout > 0 {
		mws = append(mws, middleware.Timeout(cfg.RequestTimeout))
	}
	return mws
}
