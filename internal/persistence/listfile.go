package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/basket/go-t/internal/audit"
	otelPkg "github.com/basket/go-t/internal/otel"
	"github.com/basket/go-t/internal/shared"
	"github.com/basket/go-t/internal/task"
)

// Options configures a ListFile.
type Options struct {
	// Atomic saves through a temp file and rename instead of truncating in place.
	Atomic bool
	// DeleteIfEmpty removes a list file instead of writing an empty one.
	DeleteIfEmpty bool
	Logger        *slog.Logger
	Telemetry     *otelPkg.Provider
}

// ListFile is a named list stored in a task directory, plus its done list.
type ListFile struct {
	Name string
	Dir  string

	atomic        bool
	deleteIfEmpty bool
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *otelPkg.Metrics
}

// NewListFile binds list name to dir.
func NewListFile(dir, name string, opts Options) (*ListFile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provider := opts.Telemetry
	if provider == nil {
		provider = otelPkg.Noop()
	}
	metrics, err := otelPkg.NewMetrics(provider.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return &ListFile{
		Name:          name,
		Dir:           dir,
		atomic:        opts.Atomic,
		deleteIfEmpty: opts.DeleteIfEmpty,
		logger:        logger.With("list", name),
		tracer:        provider.Tracer,
		metrics:       metrics,
	}, nil
}

// Path is the list file.
func (l *ListFile) Path() string {
	return filepath.Join(l.Dir, l.Name)
}

// DonePath is the hidden file that finished tasks move to.
func (l *ListFile) DonePath() string {
	return filepath.Join(l.Dir, "."+l.Name+".done")
}

func (l *ListFile) Load(ctx context.Context) (*task.Store, error) {
	s, _, err := l.scan(ctx, "list.load", l.Path())
	return s, err
}

func (l *ListFile) LoadDone(ctx context.Context) (*task.Store, error) {
	s, _, err := l.scan(ctx, "list.load_done", l.DonePath())
	return s, err
}

// Scan loads the list and reports line statistics. A missing file scans as empty.
func (l *ListFile) Scan(ctx context.Context) (*task.Store, ScanStats, error) {
	return l.scan(ctx, "list.scan", l.Path())
}

func (l *ListFile) Save(ctx context.Context, s *task.Store) error {
	return l.save(ctx, "list.save", l.Path(), s)
}

func (l *ListFile) SaveDone(ctx context.Context, s *task.Store) error {
	return l.save(ctx, "list.save_done", l.DonePath(), s)
}

// Record notes a mutation in a span, the metrics, the log and the journal.
func (l *ListFile) Record(ctx context.Context, action string, t task.Task, prev task.ID) {
	ctx, span := otelPkg.StartSpan(ctx, l.tracer, "task."+action,
		otelPkg.AttrList.String(l.Name),
		otelPkg.AttrAction.String(action),
		otelPkg.AttrTaskID.String(t.ID.String()),
		otelPkg.AttrRunID.String(shared.RunID(ctx)),
	)
	defer otelPkg.EndSpan(span, nil)

	l.metrics.Mutations.Add(ctx, 1, metric.WithAttributes(otelPkg.AttrAction.String(action)))
	l.logger.InfoContext(ctx, "task "+action, "task_id", t.ID.String(), "prev_id", prev.String(), "text", t.Text)
	audit.Record(ctx, action, t.ID.String(), prev.String(), t.Text)
}

func (l *ListFile) scan(ctx context.Context, op, path string) (s *task.Store, stats ScanStats, err error) {
	ctx, span := otelPkg.StartSpan(ctx, l.tracer, op,
		otelPkg.AttrList.String(l.Name),
		otelPkg.AttrPath.String(path),
		otelPkg.AttrRunID.String(shared.RunID(ctx)),
	)
	defer func() { otelPkg.EndSpan(span, err) }()

	s, stats, err = ScanFile(path)
	if err != nil {
		return nil, stats, err
	}

	span.SetAttributes(otelPkg.AttrTaskCount.Int(s.Len()))
	l.metrics.TasksLoaded.Add(ctx, int64(s.Len()))
	l.metrics.LinesSkipped.Add(ctx, int64(stats.Comments+stats.Blank))
	l.logger.DebugContext(ctx, "list loaded", "path", path, "tasks", s.Len(), "lines", stats.Lines, "duplicates", stats.Duplicates)
	return s, stats, nil
}

func (l *ListFile) save(ctx context.Context, op, path string, s *task.Store) (err error) {
	mode := "truncate"
	if l.atomic {
		mode = "atomic"
	}
	ctx, span := otelPkg.StartSpan(ctx, l.tracer, op,
		otelPkg.AttrList.String(l.Name),
		otelPkg.AttrPath.String(path),
		otelPkg.AttrSaveMode.String(mode),
		otelPkg.AttrTaskCount.Int(s.Len()),
		otelPkg.AttrRunID.String(shared.RunID(ctx)),
	)
	defer func() { otelPkg.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		l.metrics.SaveDuration.Record(ctx, time.Since(start).Seconds())
	}()

	if s.Len() == 0 && l.deleteIfEmpty {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete empty list: %w", err)
		}
		l.logger.InfoContext(ctx, "empty list deleted", "path", path)
		return nil
	}

	if l.atomic {
		err = SaveAtomic(path, s)
	} else {
		err = Save(path, s)
	}
	if err != nil {
		l.logger.ErrorContext(ctx, "list save failed", "path", path, "error", err)
		return err
	}
	l.metrics.TasksSaved.Add(ctx, int64(s.Len()))
	l.logger.DebugContext(ctx, "list saved", "path", path, "tasks", s.Len(), "mode", mode)
	return nil
}
