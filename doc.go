// Package typetraits derives four properties of a Go type from its
// reflect.Type metadata: a static mutability classification
// ([Mutability]), a structural acyclicity test ([Cycles]), a
// cycle-safe deep copy ([Copy]), and a cycle-safe structural equality
// test ([StructuralEquals], [DefaultEquals]).
//
// Every derivation is memoized per type the first time it is
// requested, and concurrent requests for the same type share one
// derivation effort rather than racing to compute it independently.
// Types opt into the richer behaviors — observation-only methods,
// constructor-based reconstruction of readonly fields, custom
// copying and allocation — through small package-level registries
// ([MarkPure], [MarkPureMethod], [RegisterConstructor],
// [OverrideCopier], [OverrideCreate], [RegisterInterface]) rather than
// struct tags or attributes, except for the one piece of information
// reflection cannot observe on its own: which fields are meant to be
// assigned only once, marked with a `typetraits:"readonly"` struct tag.
package typetraits
