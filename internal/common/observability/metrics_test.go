package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsEndedSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs := New("backoffice-test", WithRegisterer(promclient.NewRegistry()), WithSpanProcessor(recorder))
	defer obs.Shutdown()

	_, span := obs.StartSpan(context.Background(), "leadstore.create", attribute.String("lead.id", "1"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "leadstore.create", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("lead.id", "1"))
}

func TestRecorders_ExportToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs := New("backoffice-test", WithRegisterer(reg))
	defer obs.Shutdown()

	ctx := context.Background()
	obs.RecordJobProcessed(ctx, "completed")
	obs.RecordJobDuration(ctx, 20*time.Millisecond, "completed")
	obs.RecordStoreCall(ctx, "postgres", "create", 5*time.Millisecond, errors.New("boom"))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "jobs_processed_total")

	storeFamily := ""
	for _, name := range names {
		if strings.HasPrefix(name, "store_operation_duration") {
			storeFamily = name
		}
	}
	assert.NotEmpty(t, storeFamily, "store latency histogram should be exported, got %v", names)
}

func TestNilObservability_IsSafe(t *testing.T) {
	var obs *Observability

	ctx, span := obs.StartSpan(context.Background(), "noop")
	span.End()

	assert.NotNil(t, ctx)
	obs.RecordJobProcessed(ctx, "x")
	obs.RecordStoreCall(ctx, "s", "op", time.Millisecond, nil)
	obs.Shutdown()
}
