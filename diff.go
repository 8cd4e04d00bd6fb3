package typetraits

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Diff renders a human-readable description of how a and b differ,
// using unexported fields where go-cmp can reach them. It is a
// debugging aid, not the equality decision itself: [StructuralEquals]
// and [DefaultEquals] never call this, and an empty string from Diff
// is not a substitute for checking DefaultEquals(a, b).
func Diff[T any](a, b T) string {
	return cmp.Diff(a, b, cmp.Exporter(func(reflect.Type) bool { return true }))
}
