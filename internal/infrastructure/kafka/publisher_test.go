package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/marketplace/app/internal/domain/order"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability/logctx"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishWritesKeyedEnvelope(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{w: w, producer: "marketplace"}

	ev := order.NewStatusChangedEvent("o-1", order.StatusPending, order.StatusProcessing, "store", "A")
	ctx := logctx.WithRequestID(context.Background(), "req-7")
	require.NoError(t, p.Publish(ctx, ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "o-1", string(msg.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "order.status_changed", env.EventType)
	assert.Equal(t, "o-1", env.CorrelationID)
	assert.Equal(t, "marketplace", env.Producer)
	assert.Equal(t, "req-7", env.RequestID)

	var payload order.StatusChangedEvent
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, order.StatusProcessing, payload.To)
	assert.Equal(t, "A", payload.ActorStore)
}

func TestPublishSurfacesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Publisher{w: &recordingWriter{err: boom}, producer: "marketplace"}
	err := p.Handle(context.Background(), order.NewStatusChangedEvent("o-1", order.StatusPending, order.StatusShipped, "superadmin", ""))
	assert.ErrorIs(t, err, boom)
}
