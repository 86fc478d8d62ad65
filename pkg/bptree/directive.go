package bptree

// directiveKind tags which fields of a Directive are meaningful. Modeled as
// an explicit enum (per the repo's re-architecture notes) rather than the
// source's ad-hoc result object with optional fields.
type directiveKind uint8

const (
	dirNoOp directiveKind = iota
	dirReplace
	dirDelete
	dirBreak
	dirReplaceAndBreak
	dirDeleteAndBreak
)

// Directive is returned by a for_range/edit_range visitor to say what should
// happen to the pair just visited. The zero value is NoOp. Replace and
// Delete may each be combined with Break.
type Directive[V any] struct {
	kind    directiveKind
	value   V
	breakR  any
	hasBrk  bool
}

// NoOp leaves the pair untouched and continues the scan.
func NoOp[V any]() Directive[V] { return Directive[V]{kind: dirNoOp} }

// Replace overwrites the value of the current pair and continues the scan.
func Replace[V any](v V) Directive[V] { return Directive[V]{kind: dirReplace, value: v} }

// Delete removes the current pair and continues the scan.
func Delete[V any]() Directive[V] { return Directive[V]{kind: dirDelete} }

// Break stops the scan immediately, and the traversal returns r.
func Break[V any](r any) Directive[V] { return Directive[V]{kind: dirBreak, breakR: r, hasBrk: true} }

// ReplaceAndBreak overwrites the current pair's value, then stops the scan
// and returns r.
func ReplaceAndBreak[V any](v V, r any) Directive[V] {
	return Directive[V]{kind: dirReplaceAndBreak, value: v, breakR: r, hasBrk: true}
}

// DeleteAndBreak removes the current pair, then stops the scan and returns r.
func DeleteAndBreak[V any](r any) Directive[V] {
	return Directive[V]{kind: dirDeleteAndBreak, breakR: r, hasBrk: true}
}

func (d Directive[V]) replaces() bool {
	return d.kind == dirReplace || d.kind == dirReplaceAndBreak
}

func (d Directive[V]) deletes() bool {
	return d.kind == dirDelete || d.kind == dirDeleteAndBreak
}

func (d Directive[V]) breaks() bool { return d.hasBrk }
