package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aircast/aircast/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem response. The panic is
// logged with the request id and chi route and recorded on the request span.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				requestID := GetRequestID(r.Context())
				panicErr := fmt.Errorf("panic: %v", rec)

				event := log.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("route", routePattern(r)).
					Err(panicErr).
					Str("stack", string(debug.Stack()))

				span := trace.SpanFromContext(r.Context())
				if spanCtx := span.SpanContext(); spanCtx.IsValid() {
					event = event.Str("trace_id", spanCtx.TraceID().String())
				}
				span.RecordError(panicErr)
				span.SetStatus(codes.Error, "panic")

				event.Msg("handler panicked")

				problem := models.NewInternalError(requestID, "an unexpected error occurred")
				problem.Instance = r.URL.Path
				problem.Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
