// Package sizes is the registry of named intermediate image sizes.
//
// Every uploaded image is resized to each registered size that is smaller
// than the original. The built-in list mirrors the usual media defaults;
// callers add their own sizes with Registry.Add or a config file.
package sizes

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Fepozopo/subsize/pkg/dims"
)

// Size describes one named sub-size. A zero Width or Height leaves that
// axis unconstrained.
type Size struct {
	Name   string    `toml:"name" yaml:"name" json:"name"`
	Width  int       `toml:"width" yaml:"width" json:"width"`
	Height int       `toml:"height" yaml:"height" json:"height"`
	Crop   dims.Crop `toml:"crop" yaml:"crop" json:"crop"`
}

// Validate checks that the size can be registered.
func (s Size) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("size name is empty")
	}
	if s.Width < 0 || s.Height < 0 {
		return fmt.Errorf("size %s: negative dimensions %dx%d", s.Name, s.Width, s.Height)
	}
	if s.Width == 0 && s.Height == 0 {
		return fmt.Errorf("size %s: width and height are both zero", s.Name)
	}
	return nil
}

func (s Size) String() string {
	return fmt.Sprintf("%s %dx%d crop=%s", s.Name, s.Width, s.Height, s.Crop)
}

// Builtin is the list of sizes registered by Default.
var Builtin = []Size{
	{Name: "thumbnail", Width: 150, Height: 150, Crop: dims.Centered()},
	{Name: "medium", Width: 300, Height: 300},
	{Name: "medium_large", Width: 768, Height: 0},
	{Name: "large", Width: 1024, Height: 1024},
	{Name: "1536x1536", Width: 1536, Height: 1536},
	{Name: "2048x2048", Width: 2048, Height: 2048},
}

// Registry is an ordered set of sizes keyed by name. It is safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Size
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: map[string]Size{}}
}

// Default returns a registry holding the Builtin sizes.
func Default() *Registry {
	r := New()
	for _, s := range Builtin {
		// builtins are valid by construction
		_ = r.Add(s)
	}
	return r
}

// Add registers s, replacing any size with the same name in place.
func (r *Registry) Add(s Size) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[s.Name]; !ok {
		r.order = append(r.order, s.Name)
	}
	r.byName[s.Name] = s
	return nil
}

// Remove unregisters the named size. It reports whether the size existed.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; !ok {
		return false
	}
	delete(r.byName, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the named size.
func (r *Registry) Get(name string) (Size, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// All returns the registered sizes in registration order.
func (r *Registry) All() []Size {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Size, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}

// Names returns the registered size names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered sizes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
