package typetraits

import (
	"fmt"
	"reflect"
	"sync"

	reflectx "golang.design/x/reflect"
)

// RefMap is the cycle-breaking identity map threaded through one
// top-level [Copy] call: it records, by source address, the
// already-allocated destination for every pointer this traversal has
// started copying, so a self- or mutually-referential
// graph is copied exactly once per node instead of diverging (§4.D,
// Invariant 1). It is exported because [OverrideCopier] implementations
// that recurse into [CopyWithRefs] need to pass the same map along.
type RefMap struct {
	mu sync.Mutex
	m  map[uintptr]reflect.Value
}

// NewRefMap returns an empty RefMap, ready to seed a [CopyWithRefs] call.
func NewRefMap() *RefMap {
	return &RefMap{m: make(map[uintptr]reflect.Value)}
}

func (r *RefMap) get(addr uintptr) (reflect.Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[addr]
	return v, ok
}

func (r *RefMap) set(addr uintptr, v reflect.Value) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[addr] = v
}

// copyPlan is the per-type compiled copy procedure described in §3:
// cached once, consulted on every subsequent instance of that type.
// Unlike a hand-compiled closure tree, nothing here captures a
// recursive reference to another type's plan — every recursive step
// re-enters [copyValue] and looks its target type up afresh, so two
// mutually recursive types never need one's plan to exist before the
// other's can be built (Invariant 2's "lazy assignment" requirement is
// satisfied by never eagerly assembling a closure graph in the first
// place, rather than by a deferred-write trick).
type copyPlan struct {
	hasReadOnly bool
	fields      []FieldDescriptor
}

var copyCache = newSpecCache[*copyPlan]()

var cloneableType = reflect.TypeOf((*Cloneable)(nil)).Elem()

type copyCtx struct {
	refs   *RefMap
	strict bool
	err    error
}

// Copy returns a deep copy of v, rebuilding every reachable mutable
// substructure while returning immutable substructures (any value
// whose type [Mutability] classifies as Immutable) as-is, shared with
// the original rather than duplicated (§4.D).
func Copy[T any](v T) T {
	out, _ := copyTop(v, NewRefMap(), false)
	return out
}

// CopyWithRefs is [Copy] with caller-supplied cycle-breaking state,
// letting an [OverrideCopier] implementation fold a nested copy into
// the same reference map as its enclosing traversal.
func CopyWithRefs[T any](v T, refs *RefMap) T {
	out, _ := copyTop(v, refs, false)
	return out
}

// CopyStrict behaves like Copy but reports [ErrNoBindableConstructor]
// when a readonly-tagged type has no constructor the best-fit binder
// can use. Copy itself never fails: it falls back to direct field
// assignment (including readonly fields) so a traversal always
// completes, which is the right default for a library whose callers
// mostly want "give me an independent copy", not "tell me my
// constructor registrations are incomplete". A value whose type
// [Mutability] classifies as Immutable (for example a struct whose
// fields are all readonly-tagged primitives) is returned as-is and
// never reaches the binder, so it produces no error.
func CopyStrict[T any](v T) (T, error) {
	return copyTop(v, NewRefMap(), true)
}

func copyTop[T any](v T, refs *RefMap, strict bool) (T, error) {
	ctx := &copyCtx{refs: refs, strict: strict}
	declaredT := typeOf[T]()
	rv := reflect.ValueOf(v)
	working := resolveDynamic(rv, declaredT)

	out := copyValue(rv, working, ctx)
	var zero T
	if !out.IsValid() {
		return zero, ctx.err
	}
	if declaredT.Kind() != reflect.Interface && out.Type() != declaredT {
		out = out.Convert(declaredT)
	}
	res, _ := out.Interface().(T)
	return res, ctx.err
}

func copyValue(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	if !rv.IsValid() {
		return reflect.Zero(declared)
	}

	if mutabilityOf(declared) == Immutable {
		return rv
	}

	if f, ok := copierOverrideFor(declared); ok {
		return f(rv, ctx.refs)
	}

	if c, ok := asCloneable(rv, declared); ok {
		out := c.Clone()
		if out == nil {
			return reflect.Zero(declared)
		}
		rov := reflect.ValueOf(out)
		if rov.Type().ConvertibleTo(declared) {
			return rov.Convert(declared)
		}
		return rov
	}

	switch declared.Kind() {
	case reflect.Pointer:
		return copyPointer(rv, declared, ctx)
	case reflect.Interface:
		return copyInterface(rv, declared, ctx)
	case reflect.Slice:
		return copySlice(rv, declared, ctx)
	case reflect.Map:
		return copyMap(rv, declared, ctx)
	case reflect.Array:
		return copyArray(rv, declared, ctx)
	case reflect.Struct:
		return copyStruct(rv, declared, ctx)
	default:
		if rv.Type() != declared && rv.Type().ConvertibleTo(declared) {
			return rv.Convert(declared)
		}
		return rv
	}
}

// asCloneable checks both T and *T for a Cloneable implementation, since
// a pointer-receiver Clone method only shows up on *T's method set.
func asCloneable(rv reflect.Value, declared reflect.Type) (Cloneable, bool) {
	if declared.Kind() != reflect.Pointer && declared.Kind() != reflect.Interface {
		if declared.Implements(cloneableType) {
			c, ok := rv.Interface().(Cloneable)
			return c, ok
		}
		if reflect.PointerTo(declared).Implements(cloneableType) {
			ptr := reflect.New(declared)
			ptr.Elem().Set(rv)
			c, ok := ptr.Interface().(Cloneable)
			return c, ok
		}
		return nil, false
	}
	if rv.CanInterface() {
		c, ok := rv.Interface().(Cloneable)
		return c, ok
	}
	return nil, false
}

func copyPointer(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	if rv.IsNil() {
		return reflect.Zero(declared)
	}
	addr := rv.Pointer()
	if cached, ok := ctx.refs.get(addr); ok {
		return cached
	}
	newPtr := reflect.New(declared.Elem())
	ctx.refs.set(addr, newPtr)
	elemCopy := copyValue(rv.Elem(), declared.Elem(), ctx)
	newPtr.Elem().Set(elemCopy)
	return newPtr
}

func copyInterface(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	if rv.IsNil() {
		return reflect.Zero(declared)
	}
	elem := rv.Elem()
	copied := copyValue(elem, elem.Type(), ctx)
	out := reflect.New(declared).Elem()
	out.Set(copied)
	return out
}

func copySlice(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	if rv.IsNil() {
		return reflect.Zero(declared)
	}
	out := reflect.MakeSlice(declared, rv.Len(), rv.Len())
	elemType := declared.Elem()
	for i := 0; i < rv.Len(); i++ {
		out.Index(i).Set(copyValue(rv.Index(i), elemType, ctx))
	}
	return out
}

func copyMap(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	if rv.IsNil() {
		return reflect.Zero(declared)
	}
	out := reflect.MakeMapWithSize(declared, rv.Len())
	keyType, valType := declared.Key(), declared.Elem()
	iter := rv.MapRange()
	for iter.Next() {
		k := copyValue(iter.Key(), keyType, ctx)
		v := copyValue(iter.Value(), valType, ctx)
		out.SetMapIndex(k, v)
	}
	return out
}

func copyArray(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	out := reflect.New(declared).Elem()
	elemType := declared.Elem()
	for i := 0; i < rv.Len(); i++ {
		out.Index(i).Set(copyValue(rv.Index(i), elemType, ctx))
	}
	return out
}

func copyStruct(rv reflect.Value, declared reflect.Type, ctx *copyCtx) reflect.Value {
	if !rv.CanAddr() {
		// readField needs an addressable struct to reach unexported fields.
		addressable := reflect.New(declared).Elem()
		addressable.Set(rv)
		rv = addressable
	}
	plan, _ := copyCache.getOrCompute(declared, func() (*copyPlan, error) {
		fields := FieldsOf(declared)
		hasReadOnly := false
		for _, f := range fields {
			if f.ReadOnly {
				hasReadOnly = true
				break
			}
		}
		return &copyPlan{
			fields:      fields,
			hasReadOnly: hasReadOnly,
		}, nil
	})

	if !plan.hasReadOnly {
		out := createZero(declared)
		for _, f := range plan.fields {
			fv := readField(rv.FieldByIndex(f.Index))
			cv := copyValue(fv, f.Type, ctx)
			setField(out.FieldByIndex(f.Index), cv)
		}
		return out
	}
	return copyViaConstructor(rv, declared, plan, ctx)
}

func copyViaConstructor(rv reflect.Value, declared reflect.Type, plan *copyPlan, ctx *copyCtx) reflect.Value {
	fieldValues := make(map[int]reflect.Value, len(plan.fields))
	for i, f := range plan.fields {
		fv := readField(rv.FieldByIndex(f.Index))
		fieldValues[i] = copyValue(fv, f.Type, ctx)
	}

	if out, ok := bindConstructor(declared, plan.fields, fieldValues, rv); ok {
		if out.Type() != declared {
			out = out.Convert(declared)
		}
		return out
	}

	if ctx.strict && ctx.err == nil {
		ctx.err = fmt.Errorf("%w: %s", ErrNoBindableConstructor, declared)
	}

	out := createZero(declared)
	for i, f := range plan.fields {
		setField(out.FieldByIndex(f.Index), fieldValues[i])
	}
	return out
}

func createZero(t reflect.Type) reflect.Value {
	out := reflect.New(t).Elem()
	if f, ok := createOverrideFor(t); ok {
		out.Set(f())
	}
	return out
}

// readField returns fv's value, routing unexported fields through
// golang.design/x/reflect's forced-access helpers: plain reflect
// refuses .Interface() on a value reached through an unexported field,
// and this module copies unexported fields rather than skipping them.
func readField(fv reflect.Value) reflect.Value {
	if fv.CanInterface() {
		return fv
	}
	return reflect.ValueOf(reflectx.GetUnexportedField(fv))
}

func setField(dst reflect.Value, v reflect.Value) {
	if dst.CanSet() {
		if v.IsValid() {
			dst.Set(v)
		}
		return
	}
	var val any
	if v.IsValid() {
		val = readField(v).Interface()
	}
	reflectx.SetUnexportedField(dst, val)
}
