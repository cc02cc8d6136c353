package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GatewayMetrics holds metric instruments for the request gateway.
// Initialize once at server startup and reuse throughout the application lifecycle.
type GatewayMetrics struct {
	DecisionCounter    metric.Int64Counter     // Gateway decisions by route class and rule
	ResolutionDuration metric.Float64Histogram // Identity resolution latency
	ResolutionFailures metric.Int64Counter     // Failed identity resolutions
	ProviderFetchFails metric.Int64Counter     // Failed provider-token fetches
}

// NewGatewayMetrics creates metric instruments against the global meter
// provider. With no provider configured the instruments are noops.
func NewGatewayMetrics() (*GatewayMetrics, error) {
	meter := otel.Meter("caminv-portal/gateway")

	decisionCounter, err := meter.Int64Counter(
		"gateway.decision.count",
		metric.WithDescription("Gateway routing decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	resolutionDuration, err := meter.Float64Histogram(
		"gateway.identity.resolution.duration",
		metric.WithDescription("Identity resolution duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	resolutionFailures, err := meter.Int64Counter(
		"gateway.identity.resolution.failures",
		metric.WithDescription("Failed identity resolutions"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	providerFetchFails, err := meter.Int64Counter(
		"gateway.provider_token.fetch.failures",
		metric.WithDescription("Failed provider token fetches"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &GatewayMetrics{
		DecisionCounter:    decisionCounter,
		ResolutionDuration: resolutionDuration,
		ResolutionFailures: resolutionFailures,
		ProviderFetchFails: providerFetchFails,
	}, nil
}

// RecordDecision records one gateway decision with its route class and the
// policy rule that produced it.
func (m *GatewayMetrics) RecordDecision(ctx context.Context, routeClass, rule string) {
	m.DecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route.class", routeClass),
		attribute.String("policy.rule", rule),
	))
}

// RecordResolution records one identity resolution attempt.
func (m *GatewayMetrics) RecordResolution(ctx context.Context, durationMs float64, ok bool) {
	attrs := metric.WithAttributes(attribute.Bool("resolved", ok))
	m.ResolutionDuration.Record(ctx, durationMs, attrs)
	if !ok {
		m.ResolutionFailures.Add(ctx, 1)
	}
}

// RecordProviderFetchFailure records one failed provider-token fetch.
func (m *GatewayMetrics) RecordProviderFetchFailure(ctx context.Context) {
	m.ProviderFetchFails.Add(ctx, 1)
}
