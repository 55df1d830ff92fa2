// Package reflux synthesizes reducers for unidirectional state containers
// from a declarative registry of action handlers.
//
// A store definition registers an initial state template and bindings from
// action tags to handler functions, typically at package initialization time.
// CreateReducer then turns that metadata into a pure (state, action) -> state
// function suitable for any state container runtime, and FilterByAction
// selects matching actions out of a channel-based action stream.
//
// Handlers may either mutate the shallow working copy they are handed and
// return nil, or return a replacement state value outright; both styles can
// be mixed freely within one store.
package reflux
