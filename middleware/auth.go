package middleware

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/GordonDrop/mcpkit/logging"
	"github.com/GordonDrop/mcpkit/protocol"
)

// Identity represents an authenticated identity.
type Identity struct {
	// ID is a unique identifier for the identity (e.g., user ID, API key ID).
	ID string
	// Name is a human-readable name for the identity.
	Name string
	// Metadata contains additional identity information.
	Metadata map[string]any
}

type identityContextKey struct{}

// IdentityFromContext returns the authenticated identity from the context.
// Returns nil if no identity is present.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// ContextWithIdentity returns a new context with the identity attached.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// AuthOption configures the authentication middleware.
type AuthOption func(*authConfig)

type authConfig struct {
	logger    logging.Logger
	skipNames map[string]bool
}

// WithAuthLogger sets the logger for auth events.
func WithAuthLogger(l logging.Logger) AuthOption {
	return func(c *authConfig) {
		c.logger = l
	}
}

// WithAuthSkip lists operation names that don't require authentication.
func WithAuthSkip(names ...string) AuthOption {
	return func(c *authConfig) {
		for _, n := range names {
			c.skipNames[n] = true
		}
	}
}

// Authenticator validates the credentials of a call and returns the
// caller's identity. A nil identity with a nil error means "no credentials".
type Authenticator func(ctx context.Context, call *CallCtx) (*Identity, error)

// Auth returns middleware that authenticates calls using the provided
// authenticator. Calls without a valid identity fail with ErrUnauthorized.
func Auth(authenticator Authenticator, opts ...AuthOption) Middleware {
	cfg := &authConfig{
		logger:    logging.Nop(),
		skipNames: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next InvokeFn) InvokeFn {
		return func(ctx context.Context, call *CallCtx) (*CallResult, error) {
			if cfg.skipNames[call.Name] {
				return next(ctx, call)
			}

			identity, err := authenticator(ctx, call)
			if err != nil {
				cfg.logger.Warn("authentication failed",
					logging.F("name", call.Name),
					logging.Err(err),
				)
				return nil, errors.WithSecondaryError(errors.Wrap(ErrUnauthorized, "authenticate"), err)
			}
			if identity == nil {
				cfg.logger.Warn("authentication failed: no identity",
					logging.F("name", call.Name),
				)
				return nil, ErrUnauthorized
			}

			cfg.logger.Debug("authenticated",
				logging.F("name", call.Name),
				logging.F("identity", identity.ID),
			)
			return next(ContextWithIdentity(ctx, identity), call)
		}
	}
}

// APIKeyAuthenticator reads an API key from the request metadata entry
// named key and resolves it with validate.
func APIKeyAuthenticator(key string, validate func(key string) *Identity) Authenticator {
	return func(ctx context.Context, _ *CallCtx) (*Identity, error) {
		v := protocol.GetRequestMeta(ctx, key)
		if v == "" {
			v = protocol.GetRequestMeta(ctx, strings.ToLower(key))
		}
		if v == "" {
			return nil, nil
		}
		return validate(v), nil
	}
}

// BearerTokenAuthenticator reads "Authorization: Bearer <token>" from the
// request metadata and resolves the token with validate.
func BearerTokenAuthenticator(validate func(token string) *Identity) Authenticator {
	return func(ctx context.Context, _ *CallCtx) (*Identity, error) {
		auth := protocol.GetRequestMeta(ctx, "Authorization")
		if auth == "" {
			auth = protocol.GetRequestMeta(ctx, "authorization")
		}

		const prefix = "Bearer "
		token, ok := strings.CutPrefix(auth, prefix)
		if !ok || token == "" {
			return nil, nil
		}
		return validate(token), nil
	}
}

// StaticAPIKeys creates a simple key validator from a map of key -> identity.
func StaticAPIKeys(keys map[string]*Identity) func(string) *Identity {
	return func(key string) *Identity {
		return keys[key]
	}
}

// StaticTokens creates a simple token validator from a map of token -> identity.
func StaticTokens(tokens map[string]*Identity) func(string) *Identity {
	return func(token string) *Identity {
		return tokens[token]
	}
}

// ChainAuthenticators tries each authenticator in turn and returns the
// first identity found.
func ChainAuthenticators(authenticators ...Authenticator) Authenticator {
	return func(ctx context.Context, call *CallCtx) (*Identity, error) {
		for _, auth := range authenticators {
			identity, err := auth(ctx, call)
			if err != nil {
				return nil, err
			}
			if identity != nil {
				return identity, nil
			}
		}
		return nil, nil
	}
}
