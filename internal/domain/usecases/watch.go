package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/0xcro3dile/chronorag-go/internal/domain/ports"
)

const defaultDebounce = 500 * time.Millisecond

// WatchUseCase ingests files as they appear in a directory.
// Files whose name is already present in the store are left alone, since
// chunks are never replaced.
type WatchUseCase struct {
	watcher  ports.FileWatcher
	ingest   *IngestUseCase
	store    ports.DocumentStore
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatchUseCase creates a WatchUseCase. A non-positive debounce uses 500ms.
func NewWatchUseCase(
	watcher ports.FileWatcher,
	ingest *IngestUseCase,
	store ports.DocumentStore,
	debounce time.Duration,
	logger *slog.Logger,
) *WatchUseCase {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchUseCase{
		watcher:  watcher,
		ingest:   ingest,
		store:    store,
		debounce: debounce,
		logger:   logger,
	}
}

// Run blocks until ctx is done or the watcher closes its channel.
func (uc *WatchUseCase) Run(ctx context.Context, dir string) error {
	events, err := uc.watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	defer uc.watcher.Stop()

	uc.logger.Info("watching for documents", "dir", dir)

	ready := make(chan firedTimer)
	done := make(chan struct{})
	defer close(done)
	pending := newDebounceSet()
	defer pending.stopAll()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Operation == ports.FileDeleted {
				uc.logger.Info("file removed, stored chunks kept", "file", filepath.Base(ev.Path))
				continue
			}
			if !uc.ingest.Supports(ev.Path) {
				continue
			}
			path := ev.Path
			pending.schedule(path, func(gen uint64) *time.Timer {
				return time.AfterFunc(uc.debounce, func() {
					select {
					case ready <- firedTimer{path: path, gen: gen}:
					case <-done:
					}
				})
			})

		case f := <-ready:
			// a timer that fired before being superseded still delivers
			if !pending.fire(f.path, f.gen) {
				continue
			}
			uc.handle(ctx, f.path)
		}
	}
}

type firedTimer struct {
	path string
	gen  uint64
}

// debounceSet tracks the latest timer per path. Only the newest generation
// of a path is handled when it fires.
type debounceSet struct {
	next   uint64
	timers map[string]*time.Timer
	gens   map[string]uint64
}

func newDebounceSet() *debounceSet {
	return &debounceSet{timers: make(map[string]*time.Timer), gens: make(map[string]uint64)}
}

func (d *debounceSet) schedule(path string, start func(gen uint64) *time.Timer) {
	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.next++
	d.gens[path] = d.next
	d.timers[path] = start(d.next)
}

// fire reports whether gen is the pending generation for path and, if so,
// forgets the path.
func (d *debounceSet) fire(path string, gen uint64) bool {
	if g, ok := d.gens[path]; !ok || g != gen {
		return false
	}
	delete(d.gens, path)
	delete(d.timers, path)
	return true
}

func (d *debounceSet) stopAll() {
	for _, t := range d.timers {
		t.Stop()
	}
}

func (uc *WatchUseCase) handle(ctx context.Context, path string) {
	name := filepath.Base(path)

	n, err := uc.store.Count(ctx, ports.ChunkFilter{SourceFile: name})
	if err != nil {
		uc.logger.Error("counting chunks", "file", name, "error", err)
		return
	}
	if n > 0 {
		uc.logger.Debug("already ingested", "file", name, "chunks", n)
		return
	}

	report, err := uc.ingest.IngestFile(ctx, path)
	if err != nil {
		uc.logger.Error("auto-ingest failed", "file", name, "error", err)
		return
	}
	uc.logger.Info("auto-ingested", "file", name, "persisted", report.Persisted, "failed", len(report.Failures))
}
