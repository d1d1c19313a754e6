// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

// Package rnotel provides OpenTelemetry instrumentation for rnreport
// clients. It implements the [rnreport.CallHook] interface to add a client
// span and metrics to every page call of a report run.
//
// Usage:
//
//	client := rnreport.NewSOAPClient(endpoint, creds)
//	rnotel.InstrumentClient(client, rnotel.DefaultConfig())
package rnotel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Query-farm/rightnow-report/rnreport"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "rnreport"

// OtelConfig configures OpenTelemetry instrumentation for an rnreport client.
type OtelConfig struct {
	// TracerProvider supplies the tracer. Defaults to otel.GetTracerProvider().
	TracerProvider trace.TracerProvider
	// MeterProvider supplies the meter. Defaults to otel.GetMeterProvider().
	MeterProvider metric.MeterProvider
	// Propagator injects trace context into outgoing HTTP requests when the
	// client uses an HTTPTransport. Defaults to otel.GetTextMapPropagator().
	Propagator propagation.TextMapPropagator
	// EnableTracing enables span creation. Default true.
	EnableTracing bool
	// EnableMetrics enables counter and histogram recording. Default true.
	EnableMetrics bool
	// RecordExceptions calls RecordError on the span for failed calls.
	// Default true.
	RecordExceptions bool
	// ServiceName is the rpc.service attribute value. Defaults to
	// "RightNowConnect".
	ServiceName string
	// CustomAttributes are added to every span.
	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns an OtelConfig with tracing, metrics and exception
// recording enabled. Providers and the propagator are resolved from the
// global OTel SDK at instrumentation time.
func DefaultConfig() OtelConfig {
	return OtelConfig{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentClient attaches OpenTelemetry instrumentation to client. The
// hook is added with [rnreport.Client.AddCallHook], so existing hooks keep
// running. When the client calls through an [rnreport.HTTPTransport], its
// HTTP client is wrapped to propagate the span context.
func InstrumentClient(client *rnreport.Client, cfg OtelConfig) {
	client.AddCallHook(NewHook(cfg))

	if ht, ok := client.Transport().(*rnreport.HTTPTransport); ok {
		InstrumentHTTPClient(ht.HTTPClient(), cfg.Propagator)
	}
}

// NewHook builds the CallHook installed by InstrumentClient.
func NewHook(cfg OtelConfig) rnreport.CallHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "RightNowConnect"
	}

	hook := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		hook.requestCounter, _ = meter.Int64Counter("rpc.client.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of report page calls"),
		)
		hook.durationHistogram, _ = meter.Float64Histogram("rpc.client.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of report page calls"),
		)
		hook.rowCounter, _ = meter.Int64Counter("rpc.client.rows",
			metric.WithUnit("{row}"),
			metric.WithDescription("Rows received from report page calls"),
		)
	}
	return hook
}

// InstrumentHTTPClient wraps the transport of c so every request carries
// the trace context of its request context. A nil propagator uses
// otel.GetTextMapPropagator().
func InstrumentHTTPClient(c *http.Client, p propagation.TextMapPropagator) {
	if p == nil {
		p = otel.GetTextMapPropagator()
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = &propagatingTransport{base: base, propagator: p}
}

type propagatingTransport struct {
	base       http.RoundTripper
	propagator propagation.TextMapPropagator
}

func (t *propagatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	t.propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	return t.base.RoundTrip(req)
}

// otelHook implements rnreport.CallHook with OpenTelemetry tracing and metrics.
type otelHook struct {
	cfg               OtelConfig
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
	rowCounter        metric.Int64Counter
}

// spanToken is the HookToken returned by OnCallStart.
type spanToken struct {
	span      trace.Span
	startTime time.Time
}

// OnCallStart starts a client span for one page call.
func (h *otelHook) OnCallStart(ctx context.Context, info rnreport.CallInfo) (context.Context, rnreport.HookToken) {
	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	spanName := fmt.Sprintf("rightnow/%s", info.Operation)

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "soap"),
		attribute.String("rpc.service", h.cfg.ServiceName),
		attribute.String("rpc.method", info.Operation),
		attribute.String("rnreport.run_id", info.RunID),
		attribute.Int("rnreport.report_id", info.ReportID),
		attribute.Int("rnreport.page", info.Page),
		attribute.Int("rnreport.start", info.Start),
		attribute.Int("rnreport.limit", info.Limit),
		attribute.Int("rnreport.filters", info.Filters),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)

	return ctx, &spanToken{span: span, startTime: time.Now()}
}

// OnCallEnd records span attributes and metrics, and ends the span.
func (h *otelHook) OnCallEnd(ctx context.Context, token rnreport.HookToken, info rnreport.CallInfo, stats *rnreport.CallStatistics, err error) {
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
			attribute.String("rpc.system", "soap"),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", info.Operation),
			attribute.String("rnreport.report_id", strconv.Itoa(info.ReportID)),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
		if h.rowCounter != nil && stats != nil {
			h.rowCounter.Add(ctx, stats.Rows, metricAttrs)
		}
	}

	if st.span != nil && st.span.IsRecording() {
		if stats != nil {
			st.span.SetAttributes(
				attribute.Int64("rnreport.rows", stats.Rows),
				attribute.Int64("rnreport.columns", stats.Columns),
				attribute.Int64("rnreport.request_bytes", stats.RequestBytes),
				attribute.Int64("rnreport.response_bytes", stats.ResponseBytes),
			)
		}

		if err != nil {
			st.span.SetStatus(codes.Error, err.Error())
			if h.cfg.RecordExceptions {
				st.span.RecordError(err)
			}
			errType := fmt.Sprintf("%T", err)
			var re *rnreport.ReportError
			if errors.As(err, &re) {
				errType = string(re.Kind)
				if re.Code != "" {
					st.span.SetAttributes(attribute.String("rnreport.fault_code", re.Code))
				}
			}
			st.span.SetAttributes(attribute.String("rnreport.error_type", errType))
		} else {
			st.span.SetStatus(codes.Ok, "")
		}

		st.span.End()
	}
}
