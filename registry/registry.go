// Package registry provides the named constructor tables that embeddings, heads, models and
// samplers are selected from at configuration time.
package registry

import (
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/shapegen/utils"
)

// RegDebugInfo records where a registration came from.
type RegDebugInfo struct {
	RegistrarLoc string
}

// Registration stores a constructor (mandatory).
type Registration[T any] struct {
	RegDebugInfo
	Constructor T
}

// A Registry maps names to constructors of one kind of component.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]Registration[T]
}

// New returns an empty registry. kind names the component in errors, e.g. "head".
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: map[string]Registration[T]{}}
}

// Register registers a constructor under name. Registering the same name twice or a nil
// constructor panics.
func (r *Registry[T]) Register(name string, constructor T) {
	if reflect.ValueOf(&constructor).Elem().IsZero() {
		panic(errors.Errorf("cannot register a nil constructor for %s: %s", r.kind, name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, old := r.entries[name]; old {
		panic(errors.Errorf("trying to register two %ss with the same name: %s", r.kind, name))
	}
	r.entries[name] = Registration[T]{
		RegDebugInfo: RegDebugInfo{RegistrarLoc: getCallerName()},
		Constructor:  constructor,
	}
}

// Lookup looks up a registration by name. nil is returned if there is no registration.
func (r *Registry[T]) Lookup(name string) *Registration[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	registration, ok := r.entries[name]
	if ok {
		return &registration
	}
	return nil
}

// Constructor returns the constructor registered under name or an
// UnsupportedConfigurationError listing the known names.
func (r *Registry[T]) Constructor(name string) (T, error) {
	registration := r.Lookup(name)
	if registration == nil {
		var zero T
		return zero, utils.NewUnsupportedConfigurationError(r.kind, name, r.Names())
	}
	return registration.Constructor, nil
}

// Names returns the sorted registered names.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.entries)
	sort.Strings(names)
	return names
}

// Registered returns a copy of the registrations.
func (r *Registry[T]) Registered() map[string]Registration[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Assign(r.entries)
}

func getCallerName() string {
	pc, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	if fn := runtime.FuncForPC(pc); fn != nil {
		return fmt.Sprintf("%s:%d (%s)", file, line, fn.Name())
	}
	return fmt.Sprintf("%s:%d", file, line)
}
