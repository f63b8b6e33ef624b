package zaplogger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
)

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := Wrap(zap.New(core)).With(observability.OrderID("o-1"))

	log.Warn("charge_failed",
		observability.Err(apperr.New(apperr.KindGateway, "card declined")),
		observability.F("amount", int64(500)),
		observability.F("ignored", nil),
	)
	log.Info("plain", observability.Err(errors.New("boom")))

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	assert.Equal(t, "o-1", first["order_id"])
	assert.Equal(t, "card declined", first["error"])
	assert.Equal(t, "gateway", first["error_kind"])
	assert.Equal(t, int64(500), first["amount"])
	assert.NotContains(t, first, "ignored")

	second := entries[1].ContextMap()
	assert.Equal(t, "boom", second["error"])
	assert.NotContains(t, second, "error_kind")
}

func TestWrapNil(t *testing.T) {
	log := Wrap(nil)
	assert.NotPanics(t, func() { log.With().Error("nothing") })
}
