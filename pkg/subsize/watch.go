package subsize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 500 * time.Millisecond

// Watch generates sub-sizes for images created or rewritten in dir until
// ctx is done. Events for one file are coalesced until it has been quiet
// for the debounce period.
func (g *Generator) Watch(ctx context.Context, dir string) error {
	log := g.logger().Named("watch")
	debounce := g.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	log.Info("Watching", "dir", dir)

	deb := newDebouncer(ctx, debounce)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if skipWatched(ev.Name) {
				continue
			}
			deb.touch(ev.Name)

		case f := <-deb.out:
			if !deb.accept(f) {
				continue
			}
			name := f.name
			if fi, err := os.Stat(name); err != nil || fi.IsDir() || skipWatched(name) {
				continue
			}
			md, err := g.Generate(ctx, name)
			switch {
			case isNotImage(err):
				log.Debug("Ignoring non-image", "file", name)
			case err != nil:
				log.Error("Failed to generate sizes", "file", name, "error", err)
			default:
				log.Info("Processed", "file", name, "sizes", len(md.Sizes))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Watcher error", "error", err)
		}
	}
}

// fired is a debounce timer expiry for name. seq identifies the touch
// that armed the timer.
type fired struct {
	name string
	seq  uint64
}

// debouncer coalesces events per file name. A timer that fires after a
// newer touch of the same name is stale and is not accepted, even when
// Stop was too late to keep it from sending.
type debouncer struct {
	ctx    context.Context
	delay  time.Duration
	out    chan fired
	seq    uint64
	latest map[string]uint64
	timers map[string]*time.Timer
}

func newDebouncer(ctx context.Context, delay time.Duration) *debouncer {
	return &debouncer{
		ctx:    ctx,
		delay:  delay,
		out:    make(chan fired),
		latest: map[string]uint64{},
		timers: map[string]*time.Timer{},
	}
}

// touch restarts the quiet period for name.
func (d *debouncer) touch(name string) {
	d.seq++
	seq := d.seq
	d.latest[name] = seq
	if t, ok := d.timers[name]; ok {
		t.Stop()
	}
	d.timers[name] = time.AfterFunc(d.delay, func() {
		select {
		case d.out <- fired{name: name, seq: seq}:
		case <-d.ctx.Done():
		}
	})
}

// accept reports whether f comes from the latest touch of its name and,
// if so, forgets the name.
func (d *debouncer) accept(f fired) bool {
	if d.latest[f.name] != f.seq {
		return false
	}
	delete(d.latest, f.name)
	delete(d.timers, f.name)
	return true
}

func (d *debouncer) stop() {
	for _, t := range d.timers {
		t.Stop()
	}
}

// skipWatched filters out hidden files and files Generate writes itself.
func skipWatched(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || IsGenerated(path)
}
