package typetraits

import "reflect"

// resolveDynamic compensates for a quirk in how Go's generics interact
// with reflect.ValueOf: when T is itself an interface type (most
// commonly `any`), reflect.ValueOf(v) for a `v T` parameter already
// unwraps to v's concrete dynamic type — Kind() is never Interface at
// this boundary, unlike a struct field declared as an interface type,
// which reflect does preserve as Kind() == Interface when read via
// FieldByIndex. Every exported generic entry point that both takes a
// value and needs a declared reflect.Type (Copy, IsMutable,
// StructuralEquals, DefaultEquals) must resolve against the dynamic
// type in this situation or it ends up dispatching on a Kind it
// structurally cannot see a value for.
func resolveDynamic(rv reflect.Value, declared reflect.Type) reflect.Type {
	if declared.Kind() == reflect.Interface && rv.IsValid() {
		return rv.Type()
	}
	return declared
}
