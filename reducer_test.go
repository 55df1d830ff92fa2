package reflux

import (
	"reflect"
	"testing"
)

func newCounterRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		state.(map[string]int)["count"]++
		return nil
	}, "INC")
	return r
}

func TestReducerResolvesInitialState(t *testing.T) {
	r := newCounterRegistry(t)
	reduce := CreateReducer[counterDef](r)

	state := reduce(nil, otherAction{})
	m, ok := state.(map[string]int)
	if !ok {
		t.Fatalf("state is %T, want map[string]int", state)
	}
	if m["count"] != 0 {
		t.Errorf("count = %d, want 0", m["count"])
	}

	// The resolved state is a copy, never the registered template: mutating
	// it must not leak into states resolved later.
	m["count"] = 99
	second := reduce(nil, otherAction{}).(map[string]int)
	if second["count"] != 0 {
		t.Errorf("template aliased: second initial state has count = %d, want 0", second["count"])
	}
	if reflect.ValueOf(state).Pointer() == reflect.ValueOf(second).Pointer() {
		t.Error("two initial-state resolutions returned the same map")
	}
}

func TestReducerUnmatchedTagIsIdentity(t *testing.T) {
	r := newCounterRegistry(t)
	reduce := CreateReducer[counterDef](r)

	prev := map[string]int{"count": 5}
	next := reduce(prev, otherAction{})

	if reflect.ValueOf(next).Pointer() != reflect.ValueOf(prev).Pointer() {
		t.Error("unmatched tag did not return the previous state reference")
	}
}

func TestReducerUnregisteredDefinition(t *testing.T) {
	reduce := CreateReducer[todosDef](NewRegistry())

	if got := reduce(nil, incAction{}); got != nil {
		t.Errorf("nil state through unregistered definition = %v, want nil", got)
	}

	prev := []string{"a"}
	next := reduce(prev, incAction{})
	if reflect.ValueOf(next).Pointer() != reflect.ValueOf(prev).Pointer() {
		t.Error("unregistered definition did not pass state through unchanged")
	}
}

func TestReducerMutatingHandler(t *testing.T) {
	r := newCounterRegistry(t)
	reduce := CreateReducer[counterDef](r)

	prev := map[string]int{"count": 3}
	next := reduce(prev, incAction{By: 1})

	if got := next.(map[string]int)["count"]; got != 4 {
		t.Errorf("next count = %d, want 4", got)
	}
	if prev["count"] != 3 {
		t.Errorf("previous state mutated: count = %d, want 3", prev["count"])
	}
	if reflect.ValueOf(next).Pointer() == reflect.ValueOf(prev).Pointer() {
		t.Error("handler mutated the previous state instead of a working copy")
	}
}

func TestReducerReturningHandler(t *testing.T) {
	replacement := map[string]int{"count": -1}

	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		return replacement
	}, "RESET")

	reduce := CreateReducer[counterDef](r)
	next := reduce(map[string]int{"count": 9}, tagged("RESET"))

	// The handler's return value is the next state verbatim, no further copy.
	if reflect.ValueOf(next).Pointer() != reflect.ValueOf(replacement).Pointer() {
		t.Error("handler return value was copied instead of used verbatim")
	}
}

func TestReducerInvokesBoundHandlerExactlyOnce(t *testing.T) {
	var incCalls, decCalls int

	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		incCalls++
		return nil
	}, "INC")
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		decCalls++
		return nil
	}, "DEC")

	reduce := CreateReducer[counterDef](r)
	reduce(nil, incAction{})

	if incCalls != 1 {
		t.Errorf("INC handler called %d times, want 1", incCalls)
	}
	if decCalls != 0 {
		t.Errorf("DEC handler called %d times, want 0", decCalls)
	}
}

func TestReducerRebindingTagReplacesHandler(t *testing.T) {
	var oldCalls, newCalls int

	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		oldCalls++
		return nil
	}, "INC")
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		newCalls++
		return nil
	}, "INC")

	reduce := CreateReducer[counterDef](r)
	reduce(nil, incAction{})

	if oldCalls != 0 {
		t.Errorf("replaced handler called %d times, want 0", oldCalls)
	}
	if newCalls != 1 {
		t.Errorf("newest handler called %d times, want 1", newCalls)
	}
}

func TestReducerCounterScenario(t *testing.T) {
	r := newCounterRegistry(t)
	reduce := CreateReducer[counterDef](r)

	var state any
	for _, action := range []Action{incAction{}, incAction{}, otherAction{}} {
		state = reduce(state, action)
	}

	if got := state.(map[string]int)["count"]; got != 2 {
		t.Errorf("final count = %d, want 2", got)
	}
}

func TestReducerSequenceState(t *testing.T) {
	r := NewRegistry()
	RegisterStore[todosDef](r, []string{"a", "b"})
	RegisterHandler[todosDef](r, func(state any, action Action) any {
		// Mutating style: rewrite elements of the working copy in place.
		todos := state.([]string)
		for i := range todos {
			todos[i] = todos[i] + "!"
		}
		return nil
	}, "SHOUT")
	RegisterHandler[todosDef](r, func(state any, action Action) any {
		// Returning style: growing a sequence needs a replacement value.
		return append(state.([]string), "c")
	}, "PUSH")

	reduce := CreateReducer[todosDef](r)

	prev := []string{"x", "y"}
	next := reduce(prev, tagged("SHOUT"))
	if want := []string{"x!", "y!"}; !reflect.DeepEqual(next, want) {
		t.Errorf("SHOUT result = %v, want %v", next, want)
	}
	if want := []string{"x", "y"}; !reflect.DeepEqual(prev, want) {
		t.Errorf("previous sequence mutated: %v, want %v", prev, want)
	}

	pushed := reduce(nil, tagged("PUSH"))
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(pushed, want) {
		t.Errorf("PUSH from initial = %v, want %v", pushed, want)
	}
}

func TestReducerMixedHandlerStyles(t *testing.T) {
	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		state.(map[string]int)["count"] += action.(incAction).By
		return nil
	}, "INC")
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		return map[string]int{"count": 0}
	}, "RESET")

	reduce := CreateReducer[counterDef](r)

	var state any
	state = reduce(state, incAction{By: 2})
	state = reduce(state, incAction{By: 3})
	if got := state.(map[string]int)["count"]; got != 5 {
		t.Fatalf("count = %d, want 5", got)
	}

	state = reduce(state, tagged("RESET"))
	if got := state.(map[string]int)["count"]; got != 0 {
		t.Errorf("count after reset = %d, want 0", got)
	}
}

func TestReducerHandlerPanicPropagates(t *testing.T) {
	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	RegisterHandler[counterDef](r, func(state any, action Action) any {
		panic("transition failed")
	}, "INC")

	reduce := CreateReducer[counterDef](r)

	defer func() {
		if r := recover(); r != "transition failed" {
			t.Errorf("recovered %v, want the handler's panic value", r)
		}
	}()
	reduce(nil, incAction{})
}

func TestReducerObservesLateRegistration(t *testing.T) {
	// The registry is consulted per dispatch, so handlers registered after
	// CreateReducer still apply.
	r := NewRegistry()
	RegisterStore[counterDef](r, map[string]int{"count": 0})
	reduce := CreateReducer[counterDef](r)

	state := reduce(nil, incAction{})
	if got := state.(map[string]int)["count"]; got != 0 {
		t.Fatalf("count before registration = %d, want 0", got)
	}

	RegisterHandler[counterDef](r, func(state any, action Action) any {
		state.(map[string]int)["count"]++
		return nil
	}, "INC")

	state = reduce(state, incAction{})
	if got := state.(map[string]int)["count"]; got != 1 {
		t.Errorf("count after registration = %d, want 1", got)
	}
}

func TestShallowCopySharesNestedValues(t *testing.T) {
	nested := map[string]int{"inner": 1}
	state := map[string]any{"nested": nested}

	copied := shallowCopy(state, KindMapping).(map[string]any)
	if reflect.ValueOf(copied).Pointer() == reflect.ValueOf(state).Pointer() {
		t.Fatal("shallowCopy returned the same map")
	}
	if reflect.ValueOf(copied["nested"]).Pointer() != reflect.ValueOf(nested).Pointer() {
		t.Error("shallowCopy deep-copied a nested value; the copy is shallow only")
	}
}
