// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const unmatchedRoute = "unmatched"

// HTTPMiddleware wraps each request in a server span and counts it by chi
// route pattern. tracer and metrics may each be nil.
func HTTPMiddleware(tracer *Tracer, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ctx, span := tracer.Start(r.Context(), SpanHTTPRequest,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attribute.String(AttrHTTPMethod, r.Method)))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := matchedRoute(r)

			if tracer != nil {
				span.SetAttributes(
					attribute.String(AttrHTTPRoute, route),
					attribute.Int(AttrHTTPStatusCode, status),
					attribute.Int(AttrHTTPResponseSize, ww.BytesWritten()),
				)
				if status >= http.StatusInternalServerError {
					span.SetAttributes(attribute.String(AttrErrorType, strconv.Itoa(status)))
					span.SetStatus(codes.Error, http.StatusText(status))
				}
				span.End()
			}
			metrics.RecordHTTPRequest(ctx, r.Method, route, status, time.Since(began))
		})
	}
}

// matchedRoute must run after routing; chi fills the pattern as it goes.
func matchedRoute(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unmatchedRoute
	}
	return rctx.RoutePattern()
}
