package sinks

import (
	"context"

	"github.com/corvid-labs/reconcrawl/internal/progress"
	"github.com/corvid-labs/reconcrawl/internal/telemetry"
)

// PrometheusSink drives the run's telemetry collectors (internal/telemetry)
// from the progress event stream, so any component that emits an Event gets
// counted even if it never touches the collectors directly. It owns no
// collectors of its own; internal/telemetry is the single Prometheus
// registration point for the crawl domain.
type PrometheusSink struct{}

// NewPrometheusSink builds a PrometheusSink. It takes no arguments because
// the collectors it drives are package-level in internal/telemetry.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

// Consume updates telemetry collectors for each event in the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageArtifact:
		telemetry.ArtifactsTotal.WithLabelValues(evt.Kind).Inc()
	case progress.StageDuplicate:
		telemetry.DuplicatesTotal.WithLabelValues(evt.Kind, evt.Reason).Inc()
	case progress.StageFamilySkipped:
		telemetry.FamilySkippedTotal.Inc()
	case progress.StageRedacted:
		telemetry.RedactedTotal.Inc()
	case progress.StageError:
		telemetry.ErrorsTotal.WithLabelValues(evt.Kind).Inc()
	case progress.StageStop:
		telemetry.StopReasonTotal.WithLabelValues(evt.Reason).Inc()
	case progress.StageFetch:
		if evt.Dur > 0 {
			telemetry.FetchLatencySeconds.Observe(evt.Dur.Seconds())
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
