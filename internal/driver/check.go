package driver

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tessel/internal/diag"
	"tessel/internal/observ"
	"tessel/internal/source"
	"tessel/internal/trace"
	"tessel/internal/universe"
)

// Options configure CheckFiles.
type Options struct {
	MaxDiagnostics int
	// Jobs bounds the number of files checked at once; <= 0 means GOMAXPROCS.
	Jobs int
	// Timings appends a timings diagnostic to every file's bag.
	Timings  bool
	Observer PhaseObserver
}

// FileResult holds everything produced for one universe file.
type FileResult struct {
	Path     string
	Files    *source.Set
	Universe *universe.Universe // nil when the file could not be loaded
	Units    []UnitResult
	Bag      *diag.Bag
	Timing   *observ.Report // load and units phases
	// UnitTiming has one phase per compiled unit; nil when loading failed.
	UnitTiming *observ.Report
}

// Failed reports whether any unit failed or diverged from its expectation.
func (r *FileResult) Failed() bool {
	return r.Bag.HasErrors()
}

// CheckFile loads path and compiles all of its units.
func CheckFile(ctx context.Context, path string, opts Options) FileResult {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "file", trace.ParentFromContext(ctx)).WithExtra("path", path)
	files := source.NewSet()
	bag := diag.NewBag(opts.MaxDiagnostics)
	res := FileResult{Path: path, Files: files, Bag: bag}
	defer func() { span.End(outcomeNote(res.Failed())) }()
	observer := fileObserver(path, opts.Observer)
	if observer != nil {
		observer(PhaseEvent{Status: PhaseStart})
		defer func() { observer(PhaseEvent{Status: PhaseEnd, Failed: res.Failed()}) }()
	}

	timer := observ.NewTimer()
	var u *universe.Universe
	err := timer.Time("load", func() error {
		var err error
		u, err = universe.LoadFile(path, files, tracer)
		return err
	})
	if err != nil {
		if _, ok := diag.AsError(err); ok {
			diag.ReportErr(diag.BagReporter{Bag: bag}, err)
		} else {
			bag.Add(diag.NewError(diag.LowerUnreadable, source.Span{File: files.Add(path)}, err.Error()))
		}
		res.finish(timer, opts)
		return res
	}
	res.Universe = u

	s := NewSession(u, bag, tracer)
	s.parent = span.ID()
	s.Observe(observer)
	idx := timer.Begin("units")
	res.Units = s.Run()
	timer.End(idx, "")
	units := s.Timer().Report()
	res.UnitTiming = &units
	res.finish(timer, opts)
	return res
}

func outcomeNote(failed bool) string {
	if failed {
		return "failed"
	}
	return "ok"
}

// fileObserver stamps events with the file path.
func fileObserver(path string, fn PhaseObserver) PhaseObserver {
	if fn == nil {
		return nil
	}
	return func(ev PhaseEvent) {
		ev.File = path
		fn(ev)
	}
}

func (r *FileResult) finish(timer *observ.Timer, opts Options) {
	report := timer.Report()
	r.Timing = &report
	if opts.Timings {
		appendTimingDiagnostic(r.Bag, timingPayload{Kind: "check", Path: r.Path, TotalMS: report.TotalMS, Phases: report.Phases})
	}
	r.Bag.Sort()
}

// CheckFiles checks independent universe files in parallel. Each file gets
// its own interner, instantiation engine and session. Results keep the
// order of paths.
func CheckFiles(ctx context.Context, paths []string, opts Options) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// each goroutine owns one index, no mutex needed
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = CheckFile(gctx, path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
