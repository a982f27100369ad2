/*
 * Move Studio
 *
 * Copyright 2025 ZeroMove
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package telemetry

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.8.0"
)

// NewProvider registers a global tracer provider exporting spans to stdout.
// The global trace provider allows you to start a span from anywhere in code.
func NewProvider(
	ctx context.Context,
	serviceName string,
	sampler trace.Sampler,
) (*trace.TracerProvider, error) {
	r, err := resource.New(
		ctx,
		resource.WithFromEnv(),
		resource.WithDetectors(gcp.NewDetector()),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing resource: %w", err)
	}

	exp, err := stdouttrace.New(
		stdouttrace.WithWriter(os.Stdout),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trace exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithSampler(sampler),
		trace.WithResource(r),
		trace.WithBatcher(exp),
	)
	// Set the Tracer Provider and the W3C Trace Context propagator as globals
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// Cleanup calls the TraceProvider to shutdown any span processors
func Cleanup(ctx context.Context, tp *trace.TracerProvider) {
	if tp != nil {
		_ = tp.ForceFlush(ctx)
		_ = tp.Shutdown(ctx)
	}
}
