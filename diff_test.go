package typetraits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type diffPoint struct {
	X, Y int
}

func TestDiff_EqualValuesProduceEmptyString(t *testing.T) {
	assert.Empty(t, Diff(diffPoint{1, 2}, diffPoint{1, 2}))
}

func TestDiff_DifferingValuesProduceNonEmptyString(t *testing.T) {
	d := Diff(diffPoint{1, 2}, diffPoint{1, 3})
	assert.NotEmpty(t, d)
	assert.Contains(t, d, "Y")
}

type diffWithUnexported struct {
	Name   string
	hidden int
}

func TestDiff_ReachesUnexportedFields(t *testing.T) {
	a := diffWithUnexported{Name: "a", hidden: 1}
	b := diffWithUnexported{Name: "a", hidden: 2}
	d := Diff(a, b)
	assert.NotEmpty(t, d, "go-cmp with cmp.Exporter must see the unexported field differ")
}
