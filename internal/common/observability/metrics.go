package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"nginx-config-generator/internal/common/config"
	"nginx-config-generator/internal/common/logger"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider shutdowner
	meter          otelmetric.Meter
	tracer         trace.Tracer
	processed      otelmetric.Int64Counter
	duration       otelmetric.Float64Histogram
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// New wires the otel meter provider to the Prometheus registry and, when a
// Jaeger endpoint is configured, a batching tracer provider. Exporter failures
// are logged and leave the corresponding signal as a no-op.
func New(cfg config.ObservabilityConfig, log logger.Logger) *Observability {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	o := &Observability{tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName)}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("Failed to create Prometheus exporter", map[string]interface{}{"error": err})
	} else {
		provider := metric.NewMeterProvider(metric.WithReader(exporter))
		otel.SetMeterProvider(provider)
		o.meterProvider = provider
		o.meter = provider.Meter(cfg.ServiceName)

		o.processed, _ = o.meter.Int64Counter(
			"ncg.pipeline.processed",
			otelmetric.WithDescription("Number of configuration requests that reached a terminal state"),
		)
		o.duration, _ = o.meter.Float64Histogram(
			"ncg.pipeline.duration",
			otelmetric.WithDescription("End-to-end pipeline duration"),
			otelmetric.WithUnit("ms"),
		)
	}

	if cfg.JaegerEndpoint != "" {
		tp, err := newTracerProvider(cfg)
		if err != nil {
			log.Warn("Failed to create Jaeger exporter", map[string]interface{}{
				"error":    err,
				"endpoint": cfg.JaegerEndpoint,
			})
		} else {
			otel.SetTracerProvider(tp)
			o.tracerProvider = tp
			o.tracer = tp.Tracer(cfg.ServiceName)
		}
	}

	return o
}

// NewNoop returns an Observability whose recorders and spans do nothing.
func NewNoop() *Observability {
	return &Observability{tracer: tracenoop.NewTracerProvider().Tracer("")}
}

// RecordProcessed counts one request by output type and terminal outcome.
func (o *Observability) RecordProcessed(ctx context.Context, outputType, outcome string) {
	if o == nil || o.processed == nil {
		return
	}
	o.processed.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("output_type", outputType),
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) RecordDuration(ctx context.Context, d time.Duration, outcome string) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.Record(ctx, float64(d.Microseconds())/1000, otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
