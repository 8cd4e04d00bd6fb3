package typetraits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuralEquals_Primitives(t *testing.T) {
	assert.True(t, StructuralEquals(42, 42))
	assert.False(t, StructuralEquals(42, 43))
	assert.True(t, StructuralEquals("a", "a"))
}

type eqPoint struct {
	X, Y int
}

func TestStructuralEquals_Struct(t *testing.T) {
	assert.True(t, StructuralEquals(eqPoint{1, 2}, eqPoint{1, 2}))
	assert.False(t, StructuralEquals(eqPoint{1, 2}, eqPoint{1, 3}))
}

func TestStructuralEquals_Slice(t *testing.T) {
	assert.True(t, StructuralEquals([]int{1, 2, 3}, []int{1, 2, 3}))
	assert.False(t, StructuralEquals([]int{1, 2, 3}, []int{1, 2}))
	assert.False(t, StructuralEquals([]int{1, 2, 3}, []int{1, 2, 4}))

	var a, b []int
	assert.True(t, StructuralEquals(a, b))

	empty := []int{}
	assert.False(t, StructuralEquals(a, empty))
}

func TestStructuralEquals_Map(t *testing.T) {
	m1 := map[string]int{"a": 1, "b": 2}
	m2 := map[string]int{"b": 2, "a": 1}
	assert.True(t, StructuralEquals(m1, m2))

	m3 := map[string]int{"a": 1}
	assert.False(t, StructuralEquals(m1, m3))
}

func TestStructuralEquals_Pointer(t *testing.T) {
	a, b := 5, 5
	assert.True(t, StructuralEquals(&a, &b))
	c := 6
	assert.False(t, StructuralEquals(&a, &c))

	var n1, n2 *int
	assert.True(t, StructuralEquals(n1, n2))
}

type eqNode struct {
	Value int
	Next  *eqNode
}

func TestStructuralEquals_CircularStructuresDoNotInfiniteLoop(t *testing.T) {
	a := &eqNode{Value: 1}
	a.Next = a
	b := &eqNode{Value: 1}
	b.Next = b

	assert.NotPanics(t, func() {
		assert.True(t, StructuralEquals(a, b))
	})
}

type customEquatable struct {
	Normalized string
	Raw        string
}

func (c customEquatable) Equal(other any) bool {
	o, ok := other.(customEquatable)
	if !ok {
		return false
	}
	return c.Normalized == o.Normalized
}

func TestDefaultEquals_UsesEquatableOverride(t *testing.T) {
	a := customEquatable{Normalized: "x", Raw: "raw-a"}
	b := customEquatable{Normalized: "x", Raw: "raw-b"}

	assert.True(t, DefaultEquals(a, b))
	assert.False(t, StructuralEquals(a, b), "StructuralEquals must ignore the Equatable override")
}

func TestStructuralEquals_Interface(t *testing.T) {
	var a, b any = 42, 42
	assert.True(t, StructuralEquals(a, b))

	var c any = "42"
	assert.False(t, StructuralEquals(a, c))
}

func TestDefaultHash_ConsistentWithDefaultEquals(t *testing.T) {
	a := eqPoint{1, 2}
	b := eqPoint{1, 2}
	assert.Equal(t, DefaultHash(a), DefaultHash(b))

	c := eqPoint{1, 3}
	assert.NotEqual(t, DefaultHash(a), DefaultHash(c))
}

func TestDefaultHash_MapOrderIndependent(t *testing.T) {
	m1 := map[string]int{"a": 1, "b": 2, "c": 3}
	m2 := map[string]int{"c": 3, "b": 2, "a": 1}
	assert.Equal(t, DefaultHash(m1), DefaultHash(m2))
}
