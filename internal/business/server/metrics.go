package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/otlp"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	slogctx "github.com/veqryn/slog-context"

	"github.com/lazari03/pyetdoktorin-sessions/internal/config"
)

var (
	counter metric.Int64Counter
	hist    metric.Int64Histogram
)

func initMeters(ctx context.Context, cfg *config.Config) error {
	meter := otel.Meter(
		"pyetdoktorin/"+cfg.Application.Name,
		metric.WithInstrumentationVersion(otel.Version()),
		metric.WithInstrumentationAttributes(otlp.CreateAttributesFrom(cfg.Application)...),
	)

	var err error

	counter, err = meter.Int64Counter(
		"http.request_count",
		metric.WithDescription("Incoming request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating request_count meter")
	}

	hist, err = meter.Int64Histogram(
		"http.duration",
		metric.WithDescription("Incoming end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "creating duration meter")
	}

	return nil
}

// operationMiddleware covers a session route with tracing, metrics and a
// per-request log scope.
func operationMiddleware(cfg *config.Config, operationID string, next http.Handler) http.Handler {
	traceAttrs := otlp.CreateAttributesFrom(cfg.Application, attribute.String(commoncfg.AttrOperation, operationID))
	tracer := otel.Tracer(operationID, trace.WithInstrumentationAttributes(traceAttrs...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := slogctx.With(r.Context(),
			commoncfg.AttrRequestID, uuid.NewString(),
			commoncfg.AttrOperation, operationID,
		)

		parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(parentCtx, operationID+"-span", trace.WithAttributes(traceAttrs...))
		defer span.End()

		requestStartTime := time.Now()

		defer func() {
			elapsedTime := time.Since(requestStartTime)

			attrs := metric.WithAttributes(
				otlp.CreateAttributesFrom(cfg.Application,
					attribute.String("userAgent", r.UserAgent()),
					attribute.String(commoncfg.AttrOperation, operationID),
				)...,
			)

			counter.Add(ctx, 1, attrs)
			hist.Record(ctx, elapsedTime.Milliseconds(), attrs)
		}()

		slogctx.Info(ctx, fmt.Sprintf("Processing %s request", operationID))
		next.ServeHTTP(w, r.WithContext(ctx))
		slogctx.Info(ctx, fmt.Sprintf("Finished %s request", operationID))
	})
}
