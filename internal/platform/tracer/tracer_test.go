package tracer

import (
	"context"
	"testing"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracer_WithoutEndpoint(t *testing.T) {
	tp := InitTracer(Config{ServiceName: "marketplace-client"}, logger.NewNop())
	require.NotNil(t, tp)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	assert.Contains(t, otel.GetTextMapPropagator().Fields(), "traceparent")

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
}

func TestNewResource(t *testing.T) {
	res, err := newResource(Config{
		ServiceName: "marketplace-client",
		Attributes:  map[string]string{"marketplace.api_base_url": "http://localhost:3000"},
	})
	require.NoError(t, err)

	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	assert.Equal(t, "marketplace-client", attrs["service.name"])
	assert.Equal(t, "http://localhost:3000", attrs["marketplace.api_base_url"])
}

func TestSampler(t *testing.T) {
	params := sdktrace.SamplingParameters{
		ParentContext: context.Background(),
		TraceID:       trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		Name:          "op",
	}
	for _, ratio := range []float64{0, 1, 2} {
		assert.Equal(t, sdktrace.RecordAndSample, sampler(ratio).ShouldSample(params).Decision, "ratio %v", ratio)
	}
	assert.Equal(t, sdktrace.Drop, sampler(0.01).ShouldSample(params).Decision)
}
