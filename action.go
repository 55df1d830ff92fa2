package reflux

// Action is a dispatched event value. An action's kind is identified by its
// tag: two actions are the same kind iff their tags are equal, regardless of
// their Go types or payload shapes.
type Action interface {
	// ActionTag returns the stable discriminant for this kind of action.
	ActionTag() string
}

// Match returns a predicate that reports whether an action's tag equals the
// tag of any of the given kinds. Use it to plug tag matching into stream
// abstractions other than channels; FilterByAction covers the channel case.
func Match(kinds ...Action) func(Action) bool {
	tags := tagSet(kinds)
	return func(a Action) bool {
		_, ok := tags[a.ActionTag()]
		return ok
	}
}

func tagSet(kinds []Action) map[string]struct{} {
	tags := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		tags[k.ActionTag()] = struct{}{}
	}
	return tags
}
