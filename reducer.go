package reflux

import (
	"time"
)

// Reducer is a pure state transition function suitable for handing to a
// unidirectional state container: it maps the previous state and a
// dispatched action to the next state.
type Reducer func(state any, action Action) any

// CreateReducer synthesizes a reducer for definition type D from the
// registry's metadata. The registry is consulted on every dispatch, so
// the reducer observes handlers registered after it was created.
//
// A nil previous state resolves to a fresh shallow copy of the registered
// initial state; two reducers created from the same definition never share a
// mutable template. An action whose tag has no handler bound returns the
// previous state unchanged, same reference. For handled actions the handler
// receives a shallow working copy of the state; if it returns nil the
// (possibly mutated) copy becomes the next state, otherwise its return value
// does, verbatim and without further copying.
//
// A panicking handler is not recovered. Recovery policy belongs to the state
// container runtime driving the reducer; swallowing a failed transition here
// would corrupt state invisibly.
func CreateReducer[D any](r *Registry, opts ...ReducerOption) Reducer {
	def := definitionType[D]()
	name := def.String()

	cfg := &reducerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(state any, action Action) any {
		tag := action.ActionTag()
		fn, initial, kind, hasInitial := r.resolve(def, tag)

		if state == nil && hasInitial {
			state = shallowCopy(initial, kind)
		}
		if fn == nil {
			return state
		}

		start := time.Now()
		working := shallowCopy(state, kind)

		next := fn(working, action)
		if next == nil {
			next = working
		}

		cfg.afterDispatch(name, tag, action, time.Since(start))
		return next
	}
}
