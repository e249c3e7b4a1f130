package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/corvid-labs/reconcrawl/internal/progress"
	"github.com/corvid-labs/reconcrawl/internal/telemetry"
)

// TestPrometheusSinkRecordsMetrics ensures telemetry collectors are
// incremented from progress events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	sink := NewPrometheusSink()

	before := testutil.ToFloat64(telemetry.ArtifactsTotal.WithLabelValues("html"))
	beforeDup := testutil.ToFloat64(telemetry.DuplicatesTotal.WithLabelValues("html", "content-hash"))
	beforeFamily := testutil.ToFloat64(telemetry.FamilySkippedTotal)

	batch := []progress.Event{
		{TS: time.Now(), Stage: progress.StageArtifact, Kind: "html"},
		{TS: time.Now(), Stage: progress.StageDuplicate, Kind: "html", Reason: "content-hash"},
		{TS: time.Now(), Stage: progress.StageFamilySkipped},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, before+1, testutil.ToFloat64(telemetry.ArtifactsTotal.WithLabelValues("html")))
	require.Equal(t, beforeDup+1, testutil.ToFloat64(telemetry.DuplicatesTotal.WithLabelValues("html", "content-hash")))
	require.Equal(t, beforeFamily+1, testutil.ToFloat64(telemetry.FamilySkippedTotal))
}
