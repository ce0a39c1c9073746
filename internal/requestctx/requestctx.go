// Package requestctx carries per-request metadata below the HTTP layer so
// that domain code can attribute writes without importing transport types.
package requestctx

import "context"

type Meta struct {
	RequestID string
	ClientIP  string
	UserAgent string
}

type metaKey struct{}

func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

func MetaFrom(ctx context.Context) Meta {
	meta, _ := ctx.Value(metaKey{}).(Meta)
	return meta
}

// WithRequestID sets only the request id, keeping any other metadata.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	meta := MetaFrom(ctx)
	meta.RequestID = requestID
	return WithMeta(ctx, meta)
}

func GetRequestID(ctx context.Context) string {
	return MetaFrom(ctx).RequestID
}
