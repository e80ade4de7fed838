// Copyright (C) 2024-2026, Formlink Labs. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpcotel provides OpenTelemetry instrumentation for formlink RPC
// clients. It implements the [rpc.CallHook] interface to add distributed
// tracing and metrics around every routed call, recording which transport
// branch the call took.
//
// Usage:
//
//	client, err := rpc.Dial("http://api.example.com/rpc",
//	    rpc.WithHook(rpcotel.NewHook(rpcotel.DefaultConfig())))
package rpcotel

import (
	"context"
	"fmt"
	"time"

	"github.com/formlink/rpc"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "formlink_rpc"

// Config configures OpenTelemetry instrumentation for an RPC client.
type Config struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed calls.
	// Default true.
	RecordExceptions bool
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with sensible defaults. TracerProvider and
// MeterProvider are resolved from the global OTel SDK at hook construction.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// NewHook builds a CallHook recording spans and metrics for routed calls.
func NewHook(cfg Config) rpc.CallHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}

	h := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		h.requestCounter, _ = meter.Int64Counter("rpc.client.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of RPC calls issued"),
		)
		h.durationHistogram, _ = meter.Float64Histogram("rpc.client.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of RPC calls"),
		)
	}
	return h
}

// otelHook implements rpc.CallHook with OpenTelemetry tracing and metrics.
type otelHook struct {
	cfg               Config
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

// spanToken is the HookToken returned by OnCallStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnCallStart starts a client span for the routed call.
func (h *otelHook) OnCallStart(ctx context.Context, info rpc.CallInfo) (context.Context, rpc.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "formlink_rpc"),
		attribute.String("rpc.method", info.Method),
		attribute.String("rpc.formlink.branch", info.Branch),
		attribute.String("server.address", info.URL),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, fmt.Sprintf("formlink_rpc/%s", info.Method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, &spanToken{span: span, startTime: time.Now()}
}

// OnCallEnd records metrics and span status, then ends the span.
func (h *otelHook) OnCallEnd(ctx context.Context, token rpc.HookToken, info rpc.CallInfo, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("rpc.system", "formlink_rpc"),
			attribute.String("rpc.method", info.Method),
			attribute.String("rpc.formlink.branch", info.Branch),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span != nil && st.span.IsRecording() {
		if err != nil {
			st.span.SetStatus(codes.Error, err.Error())
			if h.cfg.RecordExceptions {
				st.span.RecordError(err)
			}
		} else {
			st.span.SetStatus(codes.Ok, "")
		}
		st.span.End()
	}
}
