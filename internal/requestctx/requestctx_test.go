package requestctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetaRoundTrip(t *testing.T) {
	assert.Equal(t, Meta{}, MetaFrom(context.Background()))

	ctx := WithMeta(context.Background(), Meta{ClientIP: "192.0.2.1", UserAgent: "curl"})
	ctx = WithRequestID(ctx, "req-9")

	assert.Equal(t, Meta{RequestID: "req-9", ClientIP: "192.0.2.1", UserAgent: "curl"}, MetaFrom(ctx))
	assert.Equal(t, "req-9", GetRequestID(ctx))
}
