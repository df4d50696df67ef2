package otel

import "go.opentelemetry.io/otel/metric"

// Metrics holds the metric instruments recorded by a run.
type Metrics struct {
	TasksLoaded  metric.Int64Counter
	TasksSaved   metric.Int64Counter
	Mutations    metric.Int64Counter
	LinesSkipped metric.Int64Counter
	SaveDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TasksLoaded, err = meter.Int64Counter("t.tasks.loaded",
		metric.WithDescription("Tasks decoded from list files"),
	)
	if err != nil {
		return nil, err
	}

	m.TasksSaved, err = meter.Int64Counter("t.tasks.saved",
		metric.WithDescription("Tasks encoded to list files"),
	)
	if err != nil {
		return nil, err
	}

	m.Mutations, err = meter.Int64Counter("t.mutations",
		metric.WithDescription("List mutations by action"),
	)
	if err != nil {
		return nil, err
	}

	m.LinesSkipped, err = meter.Int64Counter("t.lines.skipped",
		metric.WithDescription("Comment and blank lines skipped on load"),
	)
	if err != nil {
		return nil, err
	}

	m.SaveDuration, err = meter.Float64Histogram("t.save.duration",
		metric.WithDescription("List save duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}
