// Package observability assembles the concrete marketplace telemetry provider.
package observability

import (
	"github.com/Zhima-Mochi/marketplace/app/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/marketplace/app/internal/observability"
)

// instruments resolves keys registered at startup and hands out no-ops for anything else.
type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m instruments) Counter(key observability.MetricKey) observability.Counter {
	if c := m.counters[key]; c != nil {
		return c
	}
	return observability.NopCounter()
}

func (m instruments) Histogram(key observability.MetricKey) observability.Histogram {
	if h := m.histograms[key]; h != nil {
		return h
	}
	return observability.NopHistogram()
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instruments
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

// New assembles a provider. Nil parts fall back to no-ops.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: instruments{counters: counters, histograms: histograms},
	}
}

// NewMarketplace registers every instrument in observability.MarketplaceMetrics on reg and
// returns the assembled provider.
func NewMarketplace(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	counters := make(map[observability.MetricKey]observability.Counter)
	histograms := make(map[observability.MetricKey]observability.Histogram)
	for _, spec := range observability.MarketplaceMetrics {
		if spec.Histogram {
			histograms[spec.Key] = reg.Histogram(string(spec.Key), spec.Help, nil, spec.Labels...)
			continue
		}
		counters[spec.Key] = reg.Counter(string(spec.Key), spec.Help, spec.Labels...)
	}
	return New(tracer, logger, counters, histograms)
}
