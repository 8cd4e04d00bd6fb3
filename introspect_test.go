package typetraits

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type embeddedBase struct {
	ID string
}

type withEmbedding struct {
	embeddedBase
	Name string
}

func TestFieldsOf_ExpandsEmbedding(t *testing.T) {
	fields := FieldsOf(reflect.TypeOf(withEmbedding{}))
	var names []string
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"ID", "Name"}, names)
}

func TestFieldsOf_NonStructReturnsNil(t *testing.T) {
	assert.Nil(t, FieldsOf(reflect.TypeOf(42)))
	assert.Nil(t, FieldsOf(reflect.TypeOf("x")))
}

func TestFieldsOf_PointerToStruct(t *testing.T) {
	fields := FieldsOf(reflect.TypeOf(&withEmbedding{}))
	assert.Len(t, fields, 2)
}

type readonlyExample struct {
	ID   string `typetraits:"readonly"`
	Name string
}

func TestReadOnlyTag(t *testing.T) {
	fields := FieldsOf(reflect.TypeOf(readonlyExample{}))
	assert.True(t, fields[0].ReadOnly)
	assert.False(t, fields[1].ReadOnly)
}

func TestIsSealed(t *testing.T) {
	assert.True(t, IsSealed(reflect.TypeOf(42)))
	assert.True(t, IsSealed(reflect.TypeOf(withEmbedding{})))
	assert.False(t, IsSealed(reflect.TypeOf((*error)(nil)).Elem()))
}

func TestIsValueType(t *testing.T) {
	assert.True(t, IsValueType(reflect.TypeOf(42)))
	assert.False(t, IsValueType(reflect.TypeOf(&withEmbedding{})))
	assert.False(t, IsValueType(reflect.TypeOf((*error)(nil)).Elem()))
}

func TestIsArrayIsSlice(t *testing.T) {
	assert.True(t, IsArray(reflect.TypeOf([3]int{})))
	assert.False(t, IsSlice(reflect.TypeOf([3]int{})))
	assert.True(t, IsSlice(reflect.TypeOf([]int{})))
	assert.False(t, IsArray(reflect.TypeOf([]int{})))
}

func TestElementType(t *testing.T) {
	et, ok := ElementType(reflect.TypeOf([]int{}))
	assert.True(t, ok)
	assert.Equal(t, reflect.TypeOf(0), et)

	_, ok = ElementType(reflect.TypeOf(42))
	assert.False(t, ok)
}

func TestIsPrimitive(t *testing.T) {
	assert.True(t, IsPrimitive(reflect.TypeOf(42)))
	assert.True(t, IsPrimitive(reflect.TypeOf("x")))
	assert.False(t, IsPrimitive(reflect.TypeOf([]int{})))
}

func TestHasNoArgConstructor(t *testing.T) {
	assert.True(t, HasNoArgConstructor(reflect.TypeOf(withEmbedding{})))
	assert.False(t, HasNoArgConstructor(reflect.TypeOf((*error)(nil)).Elem()))
}

func TestSubtypes(t *testing.T) {
	assert.True(t, Subtypes(reflect.TypeOf(errExample{}), reflect.TypeOf((*error)(nil)).Elem()))
	assert.False(t, Subtypes(reflect.TypeOf(42), reflect.TypeOf((*error)(nil)).Elem()))
}

type errExample struct{}

func (errExample) Error() string { return "err" }

type withGetter struct {
	name string
}

func (w withGetter) Name() string { return w.name }

func TestIsBackingField(t *testing.T) {
	rt := reflect.TypeOf(withGetter{})
	f, _ := rt.FieldByName("name")
	assert.True(t, IsBackingField(rt, f))
	assert.Equal(t, "Name", NormalizeFieldName(rt, f))
}

type notABackingField struct {
	value int
}

func TestIsBackingField_NoMatchingAccessor(t *testing.T) {
	rt := reflect.TypeOf(notABackingField{})
	f, _ := rt.FieldByName("value")
	assert.False(t, IsBackingField(rt, f))
	assert.Equal(t, "value", NormalizeFieldName(rt, f))
}

type customStringer struct{}

func (customStringer) String() string { return "x" }

func TestInterfacesOf(t *testing.T) {
	its := InterfacesOf(reflect.TypeOf(customStringer{}))
	assert.Contains(t, its, reflect.TypeOf((*fmt.Stringer)(nil)).Elem())
}

type markedPure struct {
	cache map[string]int
}

func TestMarkPureAndIsPure(t *testing.T) {
	assert.False(t, IsPure(reflect.TypeOf(markedPure{})))
	MarkPure[markedPure]()
	assert.True(t, IsPure(reflect.TypeOf(markedPure{})))
}

func TestRegisterInterface(t *testing.T) {
	type onlyFoo interface{ Foo() }
	fooType := reflect.TypeOf((*onlyFoo)(nil)).Elem()
	RegisterInterface(fooType)
	assert.Contains(t, InterfacesOf(reflect.TypeOf(fooImpl{})), fooType)
}

type fooImpl struct{}

func (fooImpl) Foo() {}
