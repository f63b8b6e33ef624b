package outbox

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	domoutbox "github.com/Zhima-Mochi/marketplace/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability/logctx"
)

const (
	componentOutbox = "outbox"
	// AllEvents subscribes a handler to every event name.
	AllEvents = "*"
)

// Bus fans each published event out to its subscribers inside the Publish call. Nothing is
// queued or retried in the background; callers publish after their state change is committed
// and treat a returned error as a delivery failure only.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]domoutbox.Handler
	log  observability.Logger
}

func NewBus(logger observability.Logger) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Bus{
		subs: make(map[string][]domoutbox.Handler),
		log:  logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Publish runs every handler for e in subscription order and joins their errors.
func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	handlers = append(handlers, b.subs[AllEvents]...)
	b.mu.RUnlock()

	logger := logctx.FromOr(ctx, b.log).With(
		observability.F("event", name),
		observability.F("aggregate_id", e.AggregateID()),
	)
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return nil
	}

	var errs []error
	for i, h := range handlers {
		if err := b.invoke(ctx, logger, h, e); err != nil {
			logger.Warn("event_handler_error",
				observability.F("handler", i),
				observability.Err(err),
			)
			errs = append(errs, err)
		}
	}
	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
	return errors.Join(errs...)
}

func (b *Bus) invoke(ctx context.Context, logger observability.Logger, h domoutbox.Handler, e domoutbox.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event_handler_panic",
				observability.F("panic", r),
				observability.F("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("outbox: handler panic: %v", r)
		}
	}()
	return h(logctx.With(ctx, logger), e)
}
