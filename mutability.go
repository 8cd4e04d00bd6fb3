package typetraits

import (
	"reflect"
	"time"
)

// mutabilityInfo is the cached specialization for one type: its static
// Class, plus — only when that Class is Maybe — the residual predicate
// needed to resolve a specific instance (§4.B's "residual instance
// check"). Pointer and interface kinds never need a stored residual:
// their Maybe case is resolved structurally by isMutableValue peeling
// the wrapper before ever consulting the cache.
type mutabilityInfo struct {
	class    Class
	residual func(reflect.Value, map[uintptr]struct{}) bool
}

var mutabilityCache = newSpecCache[*mutabilityInfo]()

var (
	timeTimeType     = reflect.TypeOf(time.Time{})
	timeDurationType = reflect.TypeOf(time.Duration(0))
	reflectTypeType  = reflect.TypeOf((*reflect.Type)(nil)).Elem()
	reflectValueType = reflect.TypeOf(reflect.Value{})
	optionalPkgPath  = reflect.TypeOf(Optional[int]{}).PkgPath()
)

// Mutability derives the static mutability classification of T,
// memoizing the result for the lifetime of the process (§3, §4.B).
func Mutability[T any]() Class {
	return mutabilityOf(typeOf[T]())
}

func mutabilityOf(t reflect.Type) Class {
	info, _ := mutabilityCache.getOrCompute(t, func() (*mutabilityInfo, error) {
		return classify(t, nil), nil
	})
	return info.class
}

// IsMutable is the total instance-level predicate from §4.B: for a
// Mutable or Immutable static classification it answers without
// touching v at all; only a Maybe classification inspects the value,
// descending through pointers and interfaces and stopping the instant
// it revisits an address (cycle short-circuit, mirroring §4.C's
// acyclicity test rather than duplicating it).
func IsMutable[T any](v T) bool {
	rv := reflect.ValueOf(v)
	t := resolveDynamic(rv, typeOf[T]())
	if !rv.IsValid() {
		return false
	}
	info, _ := mutabilityCache.getOrCompute(t, func() (*mutabilityInfo, error) {
		return classify(t, nil), nil
	})
	switch info.class {
	case Immutable:
		return false
	case Mutable:
		return true
	default:
		return isMutableValue(rv, t, make(map[uintptr]struct{}))
	}
}

func isMutableValue(rv reflect.Value, declared reflect.Type, visited map[uintptr]struct{}) bool {
	if !rv.IsValid() {
		return false
	}
	switch declared.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return false
		}
		elem := rv.Elem()
		return isMutableValue(elem, elem.Type(), visited)
	case reflect.Pointer:
		if rv.IsNil() {
			return false
		}
		addr := rv.Pointer()
		if _, seen := visited[addr]; seen {
			return false
		}
		visited[addr] = struct{}{}
		return isMutableValue(rv.Elem(), declared.Elem(), visited)
	default:
		return dispatchMutable(rv, declared, visited)
	}
}

// dispatchMutable resolves a value whose declared type is the runtime
// type actually in hand (never an interface or pointer — those are
// peeled by isMutableValue first).
func dispatchMutable(rv reflect.Value, t reflect.Type, visited map[uintptr]struct{}) bool {
	info, _ := mutabilityCache.getOrCompute(t, func() (*mutabilityInfo, error) {
		return classify(t, nil), nil
	})
	switch info.class {
	case Immutable:
		return false
	case Mutable:
		return true
	default:
		if info.residual == nil {
			return false
		}
		return info.residual(rv, visited)
	}
}

// classify derives the static Class of t. stack holds the chain of
// types currently being classified by this call, breaking the
// recursion a self- or mutually-referential type graph would otherwise
// cause: revisiting an ancestor returns that ancestor's "starting"
// answer (Immutable if sealed, else Maybe — the same seed §4.B uses for
// every sealed type before any field is examined) rather than
// recursing forever. The monotone merge means this seed can only be
// refined upward by sibling fields, never downward, so the short
// circuit cannot under-report a type that is genuinely mutable through
// a non-cyclic path.
func classify(t reflect.Type, stack []reflect.Type) *mutabilityInfo {
	for _, s := range stack {
		if s == t {
			if IsSealed(t) {
				return &mutabilityInfo{class: Immutable}
			}
			return &mutabilityInfo{class: Maybe}
		}
	}

	if isWhitelistedImmutable(t) {
		return &mutabilityInfo{class: Immutable}
	}
	if isBlacklistedMutable(t) {
		return &mutabilityInfo{class: Mutable}
	}

	if isOptionalType(t) {
		valueField := t.Field(1) // Value
		inner := classify(valueField.Type, append(stack, t))
		if inner.class != Maybe {
			return inner
		}
		innerCopy := inner
		return &mutabilityInfo{
			class: Maybe,
			residual: func(rv reflect.Value, visited map[uintptr]struct{}) bool {
				return isMutableValue(rv.Field(1), valueField.Type, visited) && innerCopy.class == Maybe
			},
		}
	}

	switch t.Kind() {
	case reflect.Pointer:
		// A non-nil pointer's target is independently reassignable
		// storage (*p = x) regardless of whether the pointee's own
		// type is Immutable, so a pointer type can never be classified
		// Immutable outright — doing so would let copyValue's
		// Immutable short-circuit alias live mutable storage between
		// the original and the copy. Maybe still lets a Mutable
		// pointee win the merge outright, and costs nothing here since
		// isMutableValue, not this cached residual, does the actual
		// pointer-peeling instance check.
		inner := classify(t.Elem(), append(stack, t))
		return &mutabilityInfo{class: Maybe.merge(inner.class)}
	case reflect.Interface:
		return &mutabilityInfo{class: Maybe}
	case reflect.Array:
		elemType := t.Elem()
		inner := classify(elemType, append(stack, t))
		if inner.class != Maybe {
			return inner
		}
		return &mutabilityInfo{
			class: Maybe,
			residual: func(rv reflect.Value, visited map[uintptr]struct{}) bool {
				for i := 0; i < rv.Len(); i++ {
					if isMutableValue(rv.Index(i), elemType, visited) {
						return true
					}
				}
				return false
			},
		}
	case reflect.Struct:
		return classifyStruct(t, stack)
	default:
		// Any remaining exotic kind (UnsafePointer and the like) is
		// treated conservatively.
		return &mutabilityInfo{class: Mutable}
	}
}

type residualField struct {
	index []int
	typ   reflect.Type
}

func classifyStruct(t reflect.Type, stack []reflect.Type) *mutabilityInfo {
	pure := allMethodsPure(t)
	fields := FieldsOf(t)
	newStack := append(stack, t)

	result := Immutable
	var residuals []residualField
	for _, f := range fields {
		if !f.ReadOnly && (f.Exported || !pure) {
			return &mutabilityInfo{class: Mutable}
		}
		fc := classify(f.Type, newStack)
		result = result.merge(fc.class)
		if fc.class == Maybe {
			residuals = append(residuals, residualField{index: f.Index, typ: f.Type})
		}
	}

	if result != Maybe {
		return &mutabilityInfo{class: result}
	}
	return &mutabilityInfo{
		class: Maybe,
		residual: func(rv reflect.Value, visited map[uintptr]struct{}) bool {
			for _, rf := range residuals {
				fv := rv.FieldByIndex(rf.index)
				if isMutableValue(fv, rf.typ, visited) {
					return true
				}
			}
			return false
		},
	}
}

func isWhitelistedImmutable(t reflect.Type) bool {
	if IsPrimitive(t) {
		return true
	}
	if IsPure(t) {
		return true
	}
	switch t {
	case timeTimeType, timeDurationType, reflectValueType:
		return true
	}
	if t.Kind() == reflect.Interface && t == reflectTypeType {
		return true
	}
	return false
}

func isBlacklistedMutable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return true
	}
	return false
}

func isOptionalType(t reflect.Type) bool {
	return t.Kind() == reflect.Struct &&
		t.PkgPath() == optionalPkgPath &&
		len(t.Name()) >= 8 && t.Name()[:8] == "Optional" &&
		t.NumField() == 2 &&
		t.Field(0).Name == "Valid" &&
		t.Field(1).Name == "Value"
}

// allMethodsPure reports whether every method reachable through *T's
// method set (pointer receiver, the superset capable of mutating
// fields in place) is an observation-only method per §4.B rules (a)-(c):
// a curated pure interface method, an explicitly [MarkPureMethod]
// method, or an auto-generated backing-field getter. Rules (d) and (e)
// of the source have no Go referent: reflect.Type.NumMethod only
// enumerates a concrete type's exported methods, so an unexported
// setter is invisible to this analysis by construction — documented in
// DESIGN.md rather than worked around.
func allMethodsPure(t reflect.Type) bool {
	if IsPure(t) {
		return true
	}
	pt := reflect.PointerTo(t)

	curatedNames := map[string]struct{}{}
	for _, it := range InterfacesOf(t) {
		for i := 0; i < it.NumMethod(); i++ {
			curatedNames[it.Method(i).Name] = struct{}{}
		}
	}

	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		if _, ok := curatedNames[m.Name]; ok {
			continue
		}
		if isMarkedPureMethod(t, m.Name) {
			continue
		}
		if isGetterMethod(t, m) {
			continue
		}
		return false
	}
	return true
}

func isGetterMethod(t reflect.Type, m reflect.Method) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if name, ok := isBackingField(t, f); ok && name == m.Name {
			return true
		}
	}
	return false
}
