package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/pipeline"
)

const meterName = "lesson-orchestrator"

// PipelineMetrics records lesson runs, model calls and repair fallbacks.
// It satisfies model.Recorder.
type PipelineMetrics struct {
	runsStarted     metric.Int64Counter
	runsCompleted   metric.Int64Counter
	runsFailed      metric.Int64Counter
	runDuration     metric.Float64Histogram
	runsActive      metric.Int64UpDownCounter
	transitions     metric.Int64Counter
	modelCalls      metric.Int64Counter
	repairFallbacks metric.Int64Counter
}

// NewPipelineMetrics creates the instruments on provider, or on the global
// provider when it is nil.
func NewPipelineMetrics(provider metric.MeterProvider) (*PipelineMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	var (
		m   PipelineMetrics
		err error
	)
	if m.runsStarted, err = meter.Int64Counter(
		"lesson_pipeline.runs.started",
		metric.WithDescription("Total number of lesson runs started"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, err
	}
	if m.runsCompleted, err = meter.Int64Counter(
		"lesson_pipeline.runs.completed",
		metric.WithDescription("Total number of lesson runs that produced a lesson and quiz"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, err
	}
	if m.runsFailed, err = meter.Int64Counter(
		"lesson_pipeline.runs.failed",
		metric.WithDescription("Total number of lesson runs that failed, by step and code"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, err
	}
	if m.runDuration, err = meter.Float64Histogram(
		"lesson_pipeline.run.duration",
		metric.WithDescription("Duration of lesson runs in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.runsActive, err = meter.Int64UpDownCounter(
		"lesson_pipeline.runs.active",
		metric.WithDescription("Number of lesson runs in progress"),
		metric.WithUnit("{run}"),
	); err != nil {
		return nil, err
	}
	if m.transitions, err = meter.Int64Counter(
		"lesson_pipeline.transitions",
		metric.WithDescription("Pipeline state transitions by target state"),
		metric.WithUnit("{transition}"),
	); err != nil {
		return nil, err
	}
	if m.modelCalls, err = meter.Int64Counter(
		"model.calls",
		metric.WithDescription("Model client invocations by outcome"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.repairFallbacks, err = meter.Int64Counter(
		"repair.fallbacks",
		metric.WithDescription("Model replies no repair stage could recover"),
		metric.WithUnit("{reply}"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *PipelineMetrics) RecordRunStarted(ctx context.Context) {
	m.runsStarted.Add(ctx, 1)
	m.runsActive.Add(ctx, 1)
}

// RecordRunFinished closes a run opened with RecordRunStarted.
func (m *PipelineMetrics) RecordRunFinished(ctx context.Context, res pipeline.Result, duration time.Duration) {
	status := "completed"
	if res.Success {
		m.runsCompleted.Add(ctx, 1)
	} else {
		status = "failed"
		attrs := []attribute.KeyValue{attribute.String("status", status)}
		if res.Error != nil {
			attrs = append(attrs,
				attribute.String("step", string(res.Error.Step)),
				attribute.String("error.code", string(res.Error.Code)),
			)
		}
		m.runsFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
	m.runsActive.Add(ctx, -1)
}

// Observer counts every state a run enters.
func (m *PipelineMetrics) Observer() pipeline.Observer {
	return pipeline.ObserverFunc(func(ctx context.Context, t pipeline.Transition) {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(t.To))))
	})
}

func (m *PipelineMetrics) RecordModelCall(ctx context.Context, model, outcome string) {
	m.modelCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordRepairFallback matches the repair engine's fallback hook.
func (m *PipelineMetrics) RecordRepairFallback() {
	m.repairFallbacks.Add(context.Background(), 1)
}
