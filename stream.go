package reflux

// FilterByAction passes through actions from in whose tag matches any of the
// given kinds. Values are forwarded in arrival order with their payloads
// untouched, one synchronous test-and-forward per value; nothing is buffered
// or retained. The returned channel is closed after in is closed, so source
// completion propagates to consumers.
func FilterByAction[T Action](in <-chan T, kinds ...Action) <-chan T {
	tags := tagSet(kinds)
	out := make(chan T)

	go func() {
		defer close(out)
		for val := range in {
			if _, ok := tags[val.ActionTag()]; ok {
				out <- val
			}
		}
	}()

	return out
}
