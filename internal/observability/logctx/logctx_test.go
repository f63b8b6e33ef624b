package logctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
)

func TestFromOrFallsBack(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, From(ctx))
	assert.NotNil(t, FromOr(ctx, nil))

	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(ctx, fallback))

	ctx, enriched := Enrich(ctx, fallback, observability.OrderID("o-1"))
	assert.Equal(t, enriched, From(ctx))
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
	assert.Equal(t, "req-1", RequestID(WithRequestID(ctx, "req-1")))
}
