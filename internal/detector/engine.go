package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"etlinspector/internal/dataset"
	"etlinspector/internal/suggestions"
	"etlinspector/pkg/contracts/domain"
)

// Suggester renders remediation text for an issue.
type Suggester interface {
	ToolConfig(category domain.Category, column string) string
}

// SkipHook is called whenever a check fails on a column and the column is
// skipped. column is empty for dataset checks.
type SkipHook func(check, column string, err error)

// Engine runs registered checks over a dataset.
type Engine struct {
	registry  *Registry
	logger    *slog.Logger
	suggester Suggester
	onSkip    SkipHook
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSuggester replaces the default suggestion catalogue.
func WithSuggester(s Suggester) EngineOption {
	return func(e *Engine) {
		e.suggester = s
	}
}

// WithSkipHook registers a callback for skipped columns.
func WithSkipHook(h SkipHook) EngineOption {
	return func(e *Engine) {
		e.onSkip = h
	}
}

// WithRegistry replaces the built-in checks.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// NewEngine creates an engine with the seven built-in checks.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		registry:  DefaultRegistry(),
		logger:    slog.Default(),
		suggester: suggestions.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultRegistry returns a registry holding the built-in checks in
// execution order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []Check{
		NewNullCheck(),
		NewTypeConsistencyCheck(),
		NewDuplicateCheck(),
		NewSpecialCharCheck(),
		NewWhitespaceCheck(),
		NewDateFormatCheck(),
		NewColumnNameCheck(),
	} {
		// Built-in names are unique; Register cannot fail here.
		_ = r.Register(c)
	}
	return r
}

// Register adds a custom check after the built-ins.
func (e *Engine) Register(c Check) error {
	if err := e.registry.Register(c); err != nil {
		return err
	}
	e.logger.Debug("Registered check", slog.String("check", c.Name()), slog.String("category", string(c.Category())))
	return nil
}

// Catalogue lists registered checks.
func (e *Engine) Catalogue() []Info {
	checks := e.registry.List()
	infos := make([]Info, len(checks))
	for i, c := range checks {
		infos[i] = infoOf(c)
	}
	return infos
}

// Detect runs the enabled checks and returns the ordered report. The
// returned report has no ID or timestamp; callers stamp those.
func (e *Engine) Detect(ctx context.Context, ds *dataset.Dataset, opts Options) (domain.Report, error) {
	if ds == nil {
		return domain.Report{}, ErrNilDataset
	}

	checks, err := e.registry.Select(opts.Checks)
	if err != nil {
		return domain.Report{}, err
	}
	th := opts.Thresholds.normalized()

	results := make([][]domain.Issue, len(checks))
	if opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range checks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.run(c, ds, th)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return domain.Report{}, fmt.Errorf("detection cancelled: %w", err)
		}
	} else {
		for i, c := range checks {
			if err := ctx.Err(); err != nil {
				return domain.Report{}, fmt.Errorf("detection cancelled: %w", err)
			}
			results[i] = e.run(c, ds, th)
		}
	}

	names := make([]string, len(checks))
	issues := make([]domain.Issue, 0)
	for i, c := range checks {
		names[i] = c.Name()
		issues = append(issues, results[i]...)
	}

	e.logger.Debug("Detection finished",
		slog.String("source", ds.Name()),
		slog.Int("rows", ds.NumRows()),
		slog.Int("columns", ds.NumColumns()),
		slog.Int("issues", len(issues)))

	return domain.Report{
		Source:      ds.Name(),
		Fingerprint: ds.Fingerprint(),
		Rows:        ds.NumRows(),
		Columns:     ds.NumColumns(),
		Checks:      names,
		Issues:      issues,
	}, nil
}

func (e *Engine) run(c Check, ds *dataset.Dataset, th Thresholds) []domain.Issue {
	var issues []domain.Issue

	switch check := c.(type) {
	case ColumnCheck:
		for _, col := range ds.Columns() {
			issue, ok, err := e.inspectColumn(check, col, ds.NumRows(), th)
			if err != nil {
				e.skip(c.Name(), col.Name, err)
				continue
			}
			if ok {
				issues = append(issues, e.finish(issue))
			}
		}
	case DatasetCheck:
		issue, ok, err := e.inspectDataset(check, ds, th)
		if err != nil {
			e.skip(c.Name(), "", err)
			break
		}
		if ok {
			issues = append(issues, e.finish(issue))
		}
	}
	return issues
}

func (e *Engine) inspectColumn(c ColumnCheck, col dataset.Column, rows int, th Thresholds) (issue domain.Issue, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			issue, ok, err = domain.Issue{}, false, fmt.Errorf("panic: %v", r)
		}
	}()
	return c.InspectColumn(col, rows, th)
}

func (e *Engine) inspectDataset(c DatasetCheck, ds *dataset.Dataset, th Thresholds) (issue domain.Issue, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			issue, ok, err = domain.Issue{}, false, fmt.Errorf("panic: %v", r)
		}
	}()
	return c.InspectDataset(ds, th)
}

func (e *Engine) skip(check, column string, err error) {
	if errors.Is(err, ErrSkipColumn) {
		return
	}
	e.logger.Warn("Check skipped column",
		slog.String("check", check),
		slog.String("column", column),
		slog.String("error", err.Error()))
	if e.onSkip != nil {
		e.onSkip(check, column, err)
	}
}

func (e *Engine) finish(issue domain.Issue) domain.Issue {
	if e.suggester == nil {
		return issue
	}
	return issue.WithToolConfig(e.suggester.ToolConfig(issue.Category, issue.Column))
}
