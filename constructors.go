package typetraits

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// ErrNoBindableConstructor is returned when a type has one or more
// readonly-tagged fields but no registered constructor's parameters can
// be bound to them by the best-fit algorithm (§4.D).
var ErrNoBindableConstructor = errors.New("typetraits: no bindable constructor")

// ConstructorDescriptor is a single registered constructor candidate
// for T, recorded by [RegisterConstructor].
type ConstructorDescriptor struct {
	fn         reflect.Value
	paramNames []string
}

// Func returns the registered constructor function value.
func (c ConstructorDescriptor) Func() reflect.Value {
	return c.fn
}

// ParamNames returns the constructor's declared parameter names, in
// positional order, or nil if it was registered without names (in
// which case [bindConstructor] matches every parameter by type only).
func (c ConstructorDescriptor) ParamNames() []string {
	return c.paramNames
}

var constructorsMu sync.RWMutex
var constructors = map[reflect.Type][]ConstructorDescriptor{}

// RegisterConstructor records fn — a func(...) T value — as a
// candidate constructor for T, usable by [Copy] to rebuild instances of
// types with readonly-tagged fields (§4.D). paramNames, given in
// positional order, lets the best-fit binder match constructor
// parameters to field names; omit it to fall back to type-only
// matching.
//
// Go has no constructor reflection (a struct literal is not a method),
// so this registry is this module's explicit opt-in replacement for
// the source's automatic constructor discovery.
func RegisterConstructor[T any](fn any, paramNames ...string) error {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	want := typeOf[T]()
	if ft.Kind() != reflect.Func || ft.NumOut() != 1 || ft.Out(0) != want {
		return fmt.Errorf("typetraits: RegisterConstructor[%s]: fn must be a func(...) %s", want, want)
	}
	if len(paramNames) != 0 && len(paramNames) != ft.NumIn() {
		return fmt.Errorf("typetraits: RegisterConstructor[%s]: got %d param names for %d parameters", want, len(paramNames), ft.NumIn())
	}
	constructorsMu.Lock()
	defer constructorsMu.Unlock()
	constructors[want] = append(constructors[want], ConstructorDescriptor{fn: fv, paramNames: paramNames})
	return nil
}

func constructorsFor(t reflect.Type) []ConstructorDescriptor {
	constructorsMu.RLock()
	defer constructorsMu.RUnlock()
	out := make([]ConstructorDescriptor, len(constructors[t]))
	copy(out, constructors[t])
	return out
}

// ConstructorsOf returns every constructor registered for t via
// [RegisterConstructor], in registration order — the Go referent for
// spec.md's constructors_of(T) (§4.A). Go type metadata carries no
// native constructor listing the way the source platform's reflection
// does, so this registry (populated only by explicit opt-in, since a
// struct literal is not a constructor method Go can enumerate) is this
// module's entire answer to the operation; an unregistered type
// returns an empty slice, not an error.
func ConstructorsOf(t reflect.Type) []ConstructorDescriptor {
	return constructorsFor(t)
}

// bindConstructor runs the best-fit algorithm from §4.D: try each
// registered constructor in registration order; for each, bind every
// parameter to a field by matching name first, falling back to the
// first not-yet-used field whose type is assignable, with a final
// special case allowing a parameter typed T (or *T) itself to receive
// the source value being copied (for *T, a pointer to a fresh shallow
// copy of it) — the self-reference case used by copy-constructor-style
// APIs. The first constructor all of whose
// parameters bind wins.
func bindConstructor(t reflect.Type, fields []FieldDescriptor, fieldValues map[int]reflect.Value, self reflect.Value) (reflect.Value, bool) {
	candidates := constructorsFor(t)
	for _, cand := range candidates {
		ft := cand.fn.Type()
		args := make([]reflect.Value, ft.NumIn())
		used := make([]bool, len(fields))
		ok := true

		for i := 0; i < ft.NumIn(); i++ {
			pt := ft.In(i)
			var name string
			if i < len(cand.paramNames) {
				name = cand.paramNames[i]
			}

			if name != "" {
				if idx := fieldIndexByName(fields, name); idx >= 0 && !used[idx] && fields[idx].Type.AssignableTo(pt) {
					args[i] = fieldValues[idx]
					used[idx] = true
					continue
				}
			}

			if idx := firstUnusedAssignable(fields, used, pt); idx >= 0 {
				args[i] = fieldValues[idx]
				used[idx] = true
				continue
			}

			if pt == t || (pt.Kind() == reflect.Pointer && pt.Elem() == t) {
				if pt == t {
					args[i] = self
				} else {
					ptr := reflect.New(t)
					ptr.Elem().Set(self)
					args[i] = ptr
				}
				continue
			}

			ok = false
			break
		}

		if ok {
			return cand.fn.Call(args)[0], true
		}
	}
	return reflect.Value{}, false
}

func fieldIndexByName(fields []FieldDescriptor, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func firstUnusedAssignable(fields []FieldDescriptor, used []bool, pt reflect.Type) int {
	for i, f := range fields {
		if !used[i] && f.Type.AssignableTo(pt) {
			return i
		}
	}
	return -1
}
