package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/goliatone/go-checkout"

const (
	EventCreateAccessToken        = "rest_api_create_access_token"
	EventBrandedPaymentInitiated  = "branded_vault_card_payment_initiated"
	EventBrandedPaymentFailed     = "branded_vault_card_payment_failed"
	EventScopeUpgradeError        = "lsat_upgrade_error"
	EventScopeUpgradeComplete     = "lsat_upgrade_complete"
	EventWebCheckoutFallback      = "web_checkout_fallback"
	EventWebCheckoutPaymentInited = "web_checkout_payment_initiated"
	EventFlowSelected             = "flow_selected"
)

// Flusher is implemented by loggers that buffer events.
type Flusher interface {
	Flush() error
}

// Observer fans structured events out to the logger, metrics recorder and
// tracer. A nil Observer is valid and drops everything.
type Observer struct {
	logger  Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

func NewObserver(logger Logger, metrics MetricsRecorder, provider trace.TracerProvider) *Observer {
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Observer{
		logger:  glog.Ensure(logger),
		metrics: metrics,
		tracer:  provider.Tracer(tracerName),
	}
}

func (o *Observer) Logger() Logger {
	if o == nil {
		return glog.Nop()
	}
	return o.logger
}

func (o *Observer) Info(ctx context.Context, event string, fields map[string]any) {
	o.log(ctx, "info", event, fields)
}

func (o *Observer) Error(ctx context.Context, event string, fields map[string]any) {
	o.log(ctx, "error", event, fields)
}

// Flush drains the logger when it buffers; errors are dropped.
func (o *Observer) Flush() {
	if o == nil || o.logger == nil {
		return
	}
	if flusher, ok := o.logger.(Flusher); ok {
		_ = flusher.Flush()
	}
}

// StartStage opens a span for one orchestration stage. The returned function
// must be called with the stage outcome.
func (o *Observer) StartStage(ctx context.Context, stage string, fields map[string]any) (context.Context, func(error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o == nil {
		return ctx, func(error) {}
	}
	stage = normalizeOperation(stage)
	startedAt := time.Now()
	ctx, span := o.tracer.Start(ctx, "checkout."+stage, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(spanAttributes(fields)...)

	return ctx, func(err error) {
		status := "success"
		if err != nil {
			status = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if code := TextCode(err); code != "" {
				span.SetAttributes(attribute.String("checkout.error_code", code))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		tags := map[string]string{"stage": stage, "status": status}
		if flow := strings.TrimSpace(fmt.Sprint(fields["flow"])); flow != "" && flow != "<nil>" {
			tags["flow"] = flow
		}
		o.metrics.IncCounter(ctx, "checkout."+stage+".total", 1, cloneTags(tags))
		o.metrics.ObserveHistogram(ctx, "checkout."+stage+".duration_ms", float64(time.Since(startedAt).Milliseconds()), cloneTags(tags))
	}
}

func (o *Observer) log(ctx context.Context, level string, event string, fields map[string]any) {
	if o == nil || o.logger == nil {
		return
	}
	logger := o.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	var args []any
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	} else {
		args = flattenFields(fields)
	}
	switch level {
	case "error":
		logger.Error(event, args...)
	default:
		logger.Info(event, args...)
	}
}

func spanAttributes(fields map[string]any) []attribute.KeyValue {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		switch value := fields[key].(type) {
		case string:
			attrs = append(attrs, attribute.String("checkout."+key, value))
		case bool:
			attrs = append(attrs, attribute.Bool("checkout."+key, value))
		case int:
			attrs = append(attrs, attribute.Int("checkout."+key, value))
		default:
			attrs = append(attrs, attribute.String("checkout."+key, fmt.Sprint(value)))
		}
	}
	return attrs
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
