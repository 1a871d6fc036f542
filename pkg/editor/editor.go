// Package editor provides the image editor backends that carry out a
// computed resize: crop the source rectangle, then resample it to the
// destination size.
//
// Backends register themselves with a priority. Pure-Go backends are always
// present; ImageMagick and libvips backends are compiled in with the
// "imagick" and "vips" build tags.
package editor

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"github.com/Fepozopo/subsize/pkg/dims"
)

// ErrUnknownBackend is returned by Open for an unregistered backend name.
var ErrUnknownBackend = errors.New("unknown editor backend")

// Editor holds one decoded source image and produces resampled copies of
// it. The source is never modified.
type Editor interface {
	// Size returns the source dimensions.
	Size() (w, h int)
	// Resample reads r.SrcRect() from the source and scales it to
	// r.DstW x r.DstH.
	Resample(r dims.Result) (image.Image, error)
	// Close releases backend resources.
	Close() error
}

// OpenFunc creates an editor for img.
type OpenFunc func(img image.Image) (Editor, error)

type backend struct {
	name     string
	priority int
	open     OpenFunc
}

var (
	mu       sync.RWMutex
	backends = map[string]backend{}
)

// Register makes a backend available by name. Higher priorities are
// preferred by Default.
func Register(name string, priority int, open OpenFunc) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = backend{name: name, priority: priority, open: open}
}

// Backends lists the registered backend names, most preferred first.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	list := make([]backend, 0, len(backends))
	for _, b := range backends {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority > list[j].priority
		}
		return list[i].name < list[j].name
	})
	names := make([]string, len(list))
	for i, b := range list {
		names[i] = b.name
	}
	return names
}

// Default returns the most preferred backend name.
func Default() string {
	names := Backends()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// Open creates an editor for img using the named backend. An empty name
// selects Default.
func Open(name string, img image.Image) (Editor, error) {
	if img == nil {
		return nil, fmt.Errorf("editor: nil image")
	}
	if name == "" {
		name = Default()
	}
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Backends())
	}
	ed, err := b.open(img)
	if err != nil {
		return nil, fmt.Errorf("open %s editor: %w", name, err)
	}
	return ed, nil
}

// checkResult validates that r can be applied to a w x h source.
func checkResult(r dims.Result, w, h int) error {
	if r.DstW <= 0 || r.DstH <= 0 || r.SrcW <= 0 || r.SrcH <= 0 {
		return fmt.Errorf("editor: empty resize %v", r)
	}
	if !r.SrcRect().In(image.Rect(0, 0, w, h)) {
		return fmt.Errorf("editor: source rect %v outside %dx%d image", r.SrcRect(), w, h)
	}
	return nil
}

// base carries the source image shared by the pure-Go editors. The image
// is normalised to a zero origin so result rectangles index it directly.
type base struct {
	img image.Image
}

func (b *base) Size() (int, int) {
	s := b.img.Bounds().Size()
	return s.X, s.Y
}

func (b *base) Close() error { return nil }
