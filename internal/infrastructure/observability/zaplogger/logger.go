// Package zaplogger adapts zap to the observability.Logger port.
package zaplogger

import (
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
	"github.com/Zhima-Mochi/marketplace/app/internal/pkg/apperr"
	"go.uber.org/zap"
)

type logger struct{ l *zap.Logger }

// Wrap adapts an existing zap logger. A nil logger discards everything.
func Wrap(l *zap.Logger) observability.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &logger{l: l}
}

func (z *logger) With(fields ...observability.Field) observability.Logger {
	if len(fields) == 0 {
		return z
	}
	return &logger{l: z.l.With(toZapFields(fields)...)}
}

func (z *logger) Debug(msg string, fields ...observability.Field) { z.l.Debug(msg, toZapFields(fields)...) }
func (z *logger) Info(msg string, fields ...observability.Field) { z.l.Info(msg, toZapFields(fields)...) }
func (z *logger) Warn(msg string, fields ...observability.Field) { z.l.Warn(msg, toZapFields(fields)...) }
func (z *logger) Error(msg string, fields ...observability.Field) { z.l.Error(msg, toZapFields(fields)...) }

// toZapFields writes errors with zap.NamedError and, for classified errors, a sibling
// "<key>_kind" field carrying the apperr kind.
func toZapFields(fs []observability.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fs))
	for _, f := range fs {
		switch v := f.Value.(type) {
		case nil:
			out = append(out, zap.Skip())
		case error:
			out = append(out, zap.NamedError(f.Key, v))
			if apperr.Classified(v) {
				out = append(out, zap.String(f.Key+"_kind", string(apperr.KindOf(v))))
			}
		case string:
			out = append(out, zap.String(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
