package typetraits

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"io"
	"math"
	"reflect"
	"unsafe"
)

// visit is the cycle-breaking key from prysmaticlabs/prysm's
// ssz.deepValueEqual: the pair of addresses currently being compared,
// canonicalized so (a, b) and (b, a) hash to the same entry, plus the
// static type — two different types can never legitimately share one
// address pair in a well-typed traversal, but keying on type as well
// costs nothing and matches the grounding source exactly.
type visit struct {
	a1, a2 unsafe.Pointer
	typ    reflect.Type
}

type equalityPlan struct {
	equatable bool
	fields    []FieldDescriptor
}

var equalityCache = newSpecCache[*equalityPlan]()
var equatableType = reflect.TypeOf((*Equatable)(nil)).Elem()

// StructuralEquals compares a and b field by field, ignoring any
// [Equatable] override either type provides. Two immutable values that
// satisfy [Mutability]'s Immutable classification are still compared
// structurally here — this function answers "are these two graphs
// shaped and valued the same", not "does this library consider them
// interchangeable", which is what [DefaultEquals] answers.
func StructuralEquals[T any](a, b T) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	declared := typeOf[T]()
	if declared.Kind() == reflect.Interface {
		if !va.IsValid() || !vb.IsValid() {
			return va.IsValid() == vb.IsValid()
		}
		if va.Type() != vb.Type() {
			return false
		}
		declared = va.Type()
	}
	return equalValues(va, vb, declared, make(map[visit]bool), false)
}

// DefaultEquals is StructuralEquals, except a type implementing
// [Equatable] has its Equal method consulted instead of the structural
// field walk — the override point for value types like time.Time whose
// exported fields alone do not determine equality.
func DefaultEquals[T any](a, b T) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	declared := typeOf[T]()
	if declared.Kind() == reflect.Interface {
		if !va.IsValid() || !vb.IsValid() {
			return va.IsValid() == vb.IsValid()
		}
		if va.Type() != vb.Type() {
			return false
		}
		declared = va.Type()
	}
	return equalValues(va, vb, declared, make(map[visit]bool), true)
}

func equalValues(v1, v2 reflect.Value, t reflect.Type, visited map[visit]bool, useOverrides bool) bool {
	if !v1.IsValid() || !v2.IsValid() {
		return v1.IsValid() == v2.IsValid()
	}

	switch t.Kind() {
	case reflect.Pointer:
		if v1.IsNil() || v2.IsNil() {
			return v1.IsNil() == v2.IsNil()
		}
		if v1.Pointer() == v2.Pointer() {
			return true
		}
		a1, a2 := unsafe.Pointer(v1.Pointer()), unsafe.Pointer(v2.Pointer())
		if uintptr(a1) > uintptr(a2) {
			a1, a2 = a2, a1
		}
		vis := visit{a1, a2, t}
		if visited[vis] {
			return true
		}
		visited[vis] = true
		return equalValues(v1.Elem(), v2.Elem(), t.Elem(), visited, useOverrides)

	case reflect.Interface:
		if v1.IsNil() || v2.IsNil() {
			return v1.IsNil() == v2.IsNil()
		}
		e1, e2 := v1.Elem(), v2.Elem()
		if e1.Type() != e2.Type() {
			return false
		}
		return equalValues(e1, e2, e1.Type(), visited, useOverrides)

	case reflect.Struct:
		if useOverrides {
			if eq, ok := asEquatable(v1, t); ok {
				other := valueForEquatable(v2, t)
				return eq.Equal(other)
			}
		}
		// readField needs addressable structs to reach unexported fields.
		if !v1.CanAddr() {
			tmp := reflect.New(t).Elem()
			tmp.Set(v1)
			v1 = tmp
		}
		if !v2.CanAddr() {
			tmp := reflect.New(t).Elem()
			tmp.Set(v2)
			v2 = tmp
		}
		plan, _ := equalityCache.getOrCompute(t, func() (*equalityPlan, error) {
			return &equalityPlan{
				equatable: t.Implements(equatableType) || reflect.PointerTo(t).Implements(equatableType),
				fields:    FieldsOf(t),
			}, nil
		})
		for _, f := range plan.fields {
			fv1 := readField(v1.FieldByIndex(f.Index))
			fv2 := readField(v2.FieldByIndex(f.Index))
			if !equalValues(fv1, fv2, f.Type, visited, useOverrides) {
				return false
			}
		}
		return true

	case reflect.Array:
		for i := 0; i < v1.Len(); i++ {
			if !equalValues(v1.Index(i), v2.Index(i), t.Elem(), visited, useOverrides) {
				return false
			}
		}
		return true

	case reflect.Slice:
		if v1.IsNil() != v2.IsNil() {
			return false
		}
		if v1.Len() != v2.Len() {
			return false
		}
		if v1.Pointer() == v2.Pointer() {
			return true
		}
		for i := 0; i < v1.Len(); i++ {
			if !equalValues(v1.Index(i), v2.Index(i), t.Elem(), visited, useOverrides) {
				return false
			}
		}
		return true

	case reflect.Map:
		if v1.IsNil() != v2.IsNil() {
			return false
		}
		if v1.Len() != v2.Len() {
			return false
		}
		if v1.Pointer() == v2.Pointer() {
			return true
		}
		iter := v1.MapRange()
		for iter.Next() {
			val2 := v2.MapIndex(iter.Key())
			if !val2.IsValid() {
				return false
			}
			if !equalValues(iter.Value(), val2, t.Elem(), visited, useOverrides) {
				return false
			}
		}
		return true

	default:
		if !v1.CanInterface() {
			v1 = readField(v1)
		}
		if !v2.CanInterface() {
			v2 = readField(v2)
		}
		return v1.Equal(v2)
	}
}

func asEquatable(rv reflect.Value, declared reflect.Type) (Equatable, bool) {
	if declared.Implements(equatableType) {
		eq, ok := rv.Interface().(Equatable)
		return eq, ok
	}
	if reflect.PointerTo(declared).Implements(equatableType) {
		ptr := reflect.New(declared)
		ptr.Elem().Set(rv)
		eq, ok := ptr.Interface().(Equatable)
		return eq, ok
	}
	return nil, false
}

func valueForEquatable(rv reflect.Value, declared reflect.Type) any {
	if declared.Implements(equatableType) || rv.CanInterface() {
		return rv.Interface()
	}
	return readField(rv).Interface()
}

var hashSeed = maphash.MakeSeed()

// DefaultHash produces a structural hash: it walks the same fields
// [StructuralEquals] compares. It does not consult [Equatable], so a
// type whose Equal method treats structurally different values as
// equal can get different hashes for values [DefaultEquals] reports
// equal. (The seed is generated once at package init and never
// persisted, so hashes are not stable across runs or processes — this
// is a lookup-table hash, not a content digest).
func DefaultHash[T any](v T) uint64 {
	rv := reflect.ValueOf(v)
	t := resolveDynamic(rv, typeOf[T]())
	var h maphash.Hash
	h.SetSeed(hashSeed)
	hashValue(rv, t, &h, make(map[uintptr]bool))
	return h.Sum64()
}

func hashValue(rv reflect.Value, t reflect.Type, h *maphash.Hash, visited map[uintptr]bool) {
	if !rv.IsValid() {
		h.WriteByte(0)
		return
	}

	switch t.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			h.WriteByte(0)
			return
		}
		addr := rv.Pointer()
		if visited[addr] {
			h.WriteByte(1)
			return
		}
		visited[addr] = true
		hashValue(rv.Elem(), t.Elem(), h, visited)

	case reflect.Interface:
		if rv.IsNil() {
			h.WriteByte(0)
			return
		}
		e := rv.Elem()
		io.WriteString(h, e.Type().String())
		hashValue(e, e.Type(), h, visited)

	case reflect.Struct:
		if !rv.CanAddr() {
			// readField needs an addressable struct to reach unexported fields.
			tmp := reflect.New(t).Elem()
			tmp.Set(rv)
			rv = tmp
		}
		for _, f := range FieldsOf(t) {
			fv := readField(rv.FieldByIndex(f.Index))
			hashValue(fv, f.Type, h, visited)
		}

	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			hashValue(rv.Index(i), t.Elem(), h, visited)
		}

	case reflect.Slice:
		if rv.IsNil() {
			h.WriteByte(0)
			return
		}
		for i := 0; i < rv.Len(); i++ {
			hashValue(rv.Index(i), t.Elem(), h, visited)
		}

	case reflect.Map:
		if rv.IsNil() {
			h.WriteByte(0)
			return
		}
		// Map iteration order is random in Go; XOR the per-entry
		// sub-hashes so the combined hash does not depend on it.
		var acc uint64
		keyType, valType := t.Key(), t.Elem()
		iter := rv.MapRange()
		for iter.Next() {
			var sub maphash.Hash
			sub.SetSeed(hashSeed)
			hashValue(iter.Key(), keyType, &sub, visited)
			hashValue(iter.Value(), valType, &sub, visited)
			acc ^= sub.Sum64()
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], acc)
		h.Write(buf[:])

	default:
		if !rv.CanInterface() {
			rv = readField(rv)
		}
		hashLeaf(rv, h)
	}
}

func hashLeaf(rv reflect.Value, h *maphash.Hash) {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			h.WriteByte(1)
		} else {
			h.WriteByte(0)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(rv.Int()))
		h.Write(buf[:])
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], rv.Uint())
		h.Write(buf[:])
	case reflect.Float32, reflect.Float64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(rv.Float()))
		h.Write(buf[:])
	case reflect.String:
		io.WriteString(h, rv.String())
	default:
		fmt.Fprintf(h, "%v", rv)
	}
}
