package typetraits

import "reflect"

var cycleCache = newSpecCache[CycleClass]()

// Cycles derives whether T's declared field graph can reach itself
// again, memoizing the result for the lifetime of the process (§4.C).
// This is a purely structural, type-level question — it says nothing
// about whether a given instance actually contains a live cycle; that
// is what [IsMutable]'s address-tracking residual check and [Copy]'s
// reference map guard against at the instance level.
func Cycles[T any]() CycleClass {
	t := typeOf[T]()
	c, _ := cycleCache.getOrCompute(t, func() (CycleClass, error) {
		if hasCycle(t, nil) {
			return HasCycles, nil
		}
		return NoCycles, nil
	})
	return c
}

// hasCycle runs a DFS over t's reachable field types with ancestors
// tracked on the call stack: a field type is an ancestor either by
// direct identity or — the interface case — because some ancestor on
// the stack satisfies it (an interface-typed field can, at runtime,
// hold exactly the ancestor struct that declared it, so the static
// field graph already contains that edge even though reflection cannot
// see which concrete type will occupy the interface).
func hasCycle(t reflect.Type, ancestors []reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for _, a := range ancestors {
		if a == t {
			return true
		}
		if t.Kind() == reflect.Interface && a.Implements(t) {
			return true
		}
	}

	switch t.Kind() {
	case reflect.Struct:
		if isOptionalType(t) {
			return hasCycle(t.Field(1).Type, append(ancestors, t))
		}
		next := append(ancestors, t)
		for _, f := range FieldsOf(t) {
			if hasCycle(f.Type, next) {
				return true
			}
		}
		return false
	case reflect.Array:
		return hasCycle(t.Elem(), append(ancestors, t))
	case reflect.Interface:
		// An interface field contributes no edge on its own; it only
		// signals a cycle when an ancestor already on the stack
		// implements it, handled above.
		return false
	default:
		// Slice, map, chan, func: runtime containers whose element
		// type is not part of the declared field graph's structural
		// shape the way a struct's direct fields are — the source
		// spec scopes cycle detection to declared (non-collection)
		// field chains, per §4.C's non-goals.
		return false
	}
}
