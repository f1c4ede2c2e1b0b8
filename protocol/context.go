package protocol

import "context"

type requestMetaKey struct{}

// RequestMeta carries transport-level metadata (for example HTTP headers)
// to middleware.
type RequestMeta map[string]string

// ContextWithRequestMeta returns a new context with the request metadata attached.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns the request metadata from the context, or nil.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// GetRequestMeta returns a single metadata value, or "" when absent.
func GetRequestMeta(ctx context.Context, key string) string {
	return RequestMetaFromContext(ctx)[key]
}
