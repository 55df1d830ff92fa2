package reflux

import (
	"fmt"
	"reflect"
	"sync"
)

// ContainerKind describes the shape of a store's state. It is decided once,
// at registration time, and selects the shallow-copy strategy used by
// synthesized reducers.
type ContainerKind int

const (
	// KindMapping is map-shaped state.
	KindMapping ContainerKind = iota
	// KindSequence is slice-shaped state.
	KindSequence
)

// HandlerFunc is a state transition bound to one or more action tags.
//
// The state argument is a fresh shallow copy of the previous state. A handler
// may mutate it and return nil, in which case the mutated copy becomes the
// next state; or it may return a replacement value, which becomes the next
// state verbatim.
type HandlerFunc func(state any, action Action) any

// entry holds the registered metadata for one store definition.
type entry struct {
	initial    any
	kind       ContainerKind
	hasInitial bool
	handlers   map[string]HandlerFunc
}

// Registry maps store definition types to their initial state template and
// handler bindings. It is written during package initialization and read on
// every dispatch thereafter.
type Registry struct {
	entries map[reflect.Type]*entry
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[reflect.Type]*entry),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry. Programs that register their
// stores from package init functions use this one.
func Default() *Registry {
	return defaultRegistry
}

// definitionType returns the registry key for a definition type.
func definitionType[D any]() reflect.Type {
	return reflect.TypeOf((*D)(nil)).Elem()
}

// RegisterStore records the initial state for definition type D. The initial
// state must be a map or a slice; its container kind is fixed here and never
// re-probed at dispatch time. Registering the same definition again
// overwrites the previous template (last write wins).
//
// RegisterStore panics on any other kind of initial state. Registration runs
// at package initialization, where a panic is the only report that cannot be
// ignored; deferring the error would surface later as state corruption.
func RegisterStore[D any](r *Registry, initial any) {
	kind, ok := containerKindOf(initial)
	if !ok {
		panic(fmt.Sprintf("reflux: initial state for %v must be a map or slice, got %T", definitionType[D](), initial))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.ensure(definitionType[D]())
	e.initial = initial
	e.kind = kind
	e.hasInitial = true
}

// RegisterHandler binds fn to every given tag for definition type D. A tag
// already bound within the same definition is rebound: the last registration
// wins, replacing the prior handler for that tag.
//
// RegisterHandler panics when no tags are given or fn is nil; a handler bound
// to nothing can never run, which is a usage error worth reporting at
// registration time rather than as a silently inert store.
func RegisterHandler[D any](r *Registry, fn HandlerFunc, tags ...string) {
	if len(tags) == 0 {
		panic(fmt.Sprintf("reflux: handler for %v registered with no action tags", definitionType[D]()))
	}
	if fn == nil {
		panic(fmt.Sprintf("reflux: nil handler registered for %v", definitionType[D]()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.ensure(definitionType[D]())
	for _, tag := range tags {
		e.handlers[tag] = fn
	}
}

// ensure returns the entry for def, creating it on first registration.
// Callers must hold the write lock.
func (r *Registry) ensure(def reflect.Type) *entry {
	e, ok := r.entries[def]
	if !ok {
		e = &entry{handlers: make(map[string]HandlerFunc)}
		r.entries[def] = e
	}
	return e
}

// resolve captures everything one dispatch needs from the registry: the
// handler bound to tag (nil if none) and the initial template for
// first-dispatch state resolution. A definition that was never registered
// yields all zero values; the reducer treats that as "nothing matches".
func (r *Registry) resolve(def reflect.Type, tag string) (fn HandlerFunc, initial any, kind ContainerKind, hasInitial bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[def]
	if !ok {
		return nil, nil, 0, false
	}
	return e.handlers[tag], e.initial, e.kind, e.hasInitial
}

// containerKindOf classifies a state value as mapping or sequence.
func containerKindOf(v any) (ContainerKind, bool) {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map:
		return KindMapping, true
	case reflect.Slice:
		return KindSequence, true
	default:
		return 0, false
	}
}

// shallowCopy clones the top level of a state value. Nested values are shared
// with the original; deep copying is the handler's own responsibility.
func shallowCopy(v any, kind ContainerKind) any {
	if v == nil {
		return nil
	}

	rv := reflect.ValueOf(v)
	switch kind {
	case KindSequence:
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	default:
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		for it := rv.MapRange(); it.Next(); {
			out.SetMapIndex(it.Key(), it.Value())
		}
		return out.Interface()
	}
}
