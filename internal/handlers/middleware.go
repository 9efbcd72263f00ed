package handlers

import (
	"net/http"
	"time"

	"github.com/credora/ledger/internal/web"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// middlewareWeb opens a span for the request and seeds the context with the
// per-request values every layer below reads. When tracing is disabled the
// span id is all zeros, so a fresh UUID keeps log correlation working.
func middlewareWeb(tracer trace.Tracer, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "web")
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		if !span.SpanContext().TraceID().IsValid() {
			traceID = uuid.NewString()
		}

		v := web.Values{
			TraceID: traceID,
			Tracer:  tracer,
			Now:     time.Now().UTC(),
		}
		ctx = web.SetValues(ctx, &v)
		r = r.WithContext(ctx)

		h(w, r)
	})
}
