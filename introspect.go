package typetraits

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// readonlyTagKey is this module's Go-native stand-in for the source's
// "init-only field": Go has no field-level write-once enforcement, so
// a struct tag marks a field as constructor-assigned by convention.
//
//	type Event struct {
//	    ID string `typetraits:"readonly"`
//	}
const readonlyTagKey = "typetraits"

// FieldDescriptor describes one field reachable from a struct type,
// including fields promoted from embedded (anonymous) struct fields —
// Go's structural analogue of inherited fields from a base class.
type FieldDescriptor struct {
	Name     string
	Type     reflect.Type
	Index    []int
	Exported bool
	ReadOnly bool
}

var structInfoCache = newSpecCache[[]FieldDescriptor]()

// FieldsOf returns t's fields with embedded ("base class") fields
// first, then t's own fields; each group keeps declaration order. Non-struct types have no fields. The result is
// memoized per type: the descent through embedded fields is the one
// piece of reflection work every other component (mutability, cycles,
// copy, equality) repeats most often.
func FieldsOf(t reflect.Type) []FieldDescriptor {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	fields, _ := structInfoCache.getOrCompute(t, func() ([]FieldDescriptor, error) {
		return fieldsOf(t, nil), nil
	})
	return fields
}

func fieldsOf(t reflect.Type, prefix []int) []FieldDescriptor {
	var base, out []FieldDescriptor
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int{}, prefix...), i)

		embedded := f.Anonymous
		et := f.Type
		for et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if embedded && et.Kind() == reflect.Struct {
			base = append(base, fieldsOf(et, idx)...)
			continue
		}

		out = append(out, FieldDescriptor{
			Name:     f.Name,
			Type:     f.Type,
			Index:    idx,
			Exported: f.IsExported(),
			ReadOnly: hasReadOnlyTag(f),
		})
	}
	return append(base, out...)
}

func hasReadOnlyTag(f reflect.StructField) bool {
	tag, ok := f.Tag.Lookup(readonlyTagKey)
	if !ok {
		return false
	}
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == "readonly" {
			return true
		}
	}
	return false
}

// IsSealed reports whether t cannot be "subclassed" at runtime. Go gives
// exactly one mechanism for that: storing a value behind an interface.
// Every non-interface type is therefore sealed.
func IsSealed(t reflect.Type) bool {
	return t.Kind() != reflect.Interface
}

// IsValueType reports whether t has no identity of its own — i.e. is
// neither a pointer nor an interface.
func IsValueType(t reflect.Type) bool {
	return t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface
}

func IsArray(t reflect.Type) bool {
	return t.Kind() == reflect.Array
}

func IsSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice
}

// ElementType returns the element type of an array, slice, pointer or
// channel, and ok=false for any other kind (maps included).
func ElementType(t reflect.Type) (reflect.Type, bool) {
	switch t.Kind() {
	case reflect.Array, reflect.Slice, reflect.Pointer, reflect.Chan:
		return t.Elem(), true
	default:
		return nil, false
	}
}

func IsPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

// HasNoArgConstructor reports whether a zero-value instance of t can be
// allocated without extra information. Unlike the source's C# surface,
// this is true for every Go struct/array/slice/map/pointer kind —
// reflect.New never fails — and false only for Kind.Interface, which
// cannot be instantiated directly.
func HasNoArgConstructor(t reflect.Type) bool {
	return t.Kind() != reflect.Interface
}

// Subtypes reports whether a value of type s is assignable where a t
// is expected — the Go analogue of "S is assignable to T", covering
// both interface satisfaction and identical concrete types.
func Subtypes(s, t reflect.Type) bool {
	if s == nil || t == nil {
		return false
	}
	return s.AssignableTo(t)
}

// pureInterfaceTable is the curated set of observation-only interfaces
// from §4.B, re-grounded in real Go interfaces: every method any of
// these declares only reports on an instance, never mutates it.
var pureInterfaceTable = []reflect.Type{
	reflect.TypeOf((*error)(nil)).Elem(),
	reflect.TypeOf((*fmt.Stringer)(nil)).Elem(),
	reflect.TypeOf((*fmt.GoStringer)(nil)).Elem(),
	reflect.TypeOf((*json.Marshaler)(nil)).Elem(),
	reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem(),
	reflect.TypeOf((*encoding.BinaryMarshaler)(nil)).Elem(),
	reflect.TypeOf((*Equatable)(nil)).Elem(),
	reflect.TypeOf((*Cloneable)(nil)).Elem(),
}

var extraInterfacesMu sync.RWMutex
var extraInterfaces []reflect.Type

// RegisterInterface extends the interface set consulted by InterfacesOf
// and the purity table with an additional caller-defined observation-only
// interface. Intended for startup-time configuration only (§5).
func RegisterInterface(it reflect.Type) {
	if it.Kind() != reflect.Interface {
		return
	}
	extraInterfacesMu.Lock()
	defer extraInterfacesMu.Unlock()
	extraInterfaces = append(extraInterfaces, it)
}

// InterfacesOf returns the set of curated/registered interfaces that t
// implements.
func InterfacesOf(t reflect.Type) []reflect.Type {
	var out []reflect.Type
	for _, it := range pureInterfaceTable {
		if t.Implements(it) {
			out = append(out, it)
		}
	}
	extraInterfacesMu.RLock()
	defer extraInterfacesMu.RUnlock()
	for _, it := range extraInterfaces {
		if t.Implements(it) {
			out = append(out, it)
		}
	}
	return out
}

// IsPure reports whether t was explicitly marked pure via [MarkPure].
// This is the Go stand-in for the source's purity attribute: Go has no
// attributes to place on a type declaration, so purity is declared
// through an explicit opt-in registry instead.
func IsPure(t reflect.Type) bool {
	return pureTypes.has(t)
}

// isBackingField reports whether unexported field f looks like a
// Go auto-property backing field: paired with an exported accessor
// method of matching name and type. This is the idiom-based analogue
// of the compiler-generated "<Name>k__BackingField" convention — a
// naming convention here, not a compiler guarantee, so it is only
// trusted when paired with the presence check below (§9 design notes).
func isBackingField(t reflect.Type, f reflect.StructField) (accessor string, ok bool) {
	if f.IsExported() {
		return "", false
	}
	name := exportedName(f.Name)
	m, found := t.MethodByName(name)
	if !found {
		return "", false
	}
	sig := m.Type
	// Method value: receiver is argument 0.
	if sig.NumIn() != 1 || sig.NumOut() != 1 {
		return "", false
	}
	if sig.Out(0) != f.Type {
		return "", false
	}
	return name, true
}

// IsBackingField reports whether field f of t is an auto-property
// backing field per the naming convention above.
func IsBackingField(t reflect.Type, f reflect.StructField) bool {
	_, ok := isBackingField(t, f)
	return ok
}

// NormalizeFieldName returns the property name a backing field
// represents, or f.Name unchanged if it is not a backing field.
func NormalizeFieldName(t reflect.Type, f reflect.StructField) string {
	if name, ok := isBackingField(t, f); ok {
		return name
	}
	return f.Name
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

type typeSet struct {
	mu sync.RWMutex
	m  map[reflect.Type]struct{}
}

func newTypeSet() *typeSet {
	return &typeSet{m: make(map[reflect.Type]struct{})}
}

func (s *typeSet) add(t reflect.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[t] = struct{}{}
}

func (s *typeSet) has(t reflect.Type) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.m[t]
	return ok
}

var pureTypes = newTypeSet()

// MarkPure declares T immutable by fiat, matching the source's purity
// attribute: [Mutability] returns Immutable for T without inspecting
// its fields. Trust the declaration — a T with a mutable field reached
// only through non-property methods is explicitly out of scope for
// structural analysis (§9 open question).
func MarkPure[T any]() {
	pureTypes.add(typeOf[T]())
}

type methodKey struct {
	t    reflect.Type
	name string
}

var pureMethodsMu sync.RWMutex
var pureMethods = map[methodKey]struct{}{}

// MarkPureMethod declares a single method of T pure, the per-method
// equivalent of [MarkPure] for types that are mostly, but not entirely,
// observation-only.
func MarkPureMethod[T any](methodName string) {
	pureMethodsMu.Lock()
	defer pureMethodsMu.Unlock()
	pureMethods[methodKey{typeOf[T](), methodName}] = struct{}{}
}

func isMarkedPureMethod(t reflect.Type, name string) bool {
	pureMethodsMu.RLock()
	defer pureMethodsMu.RUnlock()
	_, ok := pureMethods[methodKey{t, name}]
	return ok
}

// typeOf returns the reflect.Type for T without requiring a value,
// the standard idiom for type-directed generic reflection code.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
