package bptree

import "reflect"

// DiffCallbacks receives the result of DiffAgainst. Each callback returns
// whether the walk should continue; returning false stops the diff early,
// the way a Break directive stops a range scan.
type DiffCallbacks[K any, V any] struct {
	OnlyThis  func(key K, value V) (bool, error)
	OnlyOther func(key K, value V) (bool, error)
	Different func(key K, thisValue, otherValue V) (bool, error)
}

// diffFrame is one level of a diffCursor's path: n is the node loaded at
// this depth, and idx is the child (internal) or key (leaf) currently
// under the cursor. An internal frame's idx names a child the cursor has
// not necessarily descended into yet — descent only happens once nothing
// shallower lets the whole subtree be skipped.
type diffFrame[K any, V any] struct {
	n   *node[K, V]
	idx int
}

// diffCursor walks one tree in ascending key order, one level at a time,
// so DiffAgainst can compare node identity at every depth rather than
// only at the leaf.
type diffCursor[K any, V any] struct {
	t     *Tree[K, V]
	stack []diffFrame[K, V]
	done  bool
}

func newDiffCursor[K any, V any](t *Tree[K, V]) (*diffCursor[K, V], error) {
	n, err := t.root.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return nil, err
	}
	c := &diffCursor[K, V]{t: t, stack: []diffFrame[K, V]{{n: n, idx: 0}}}
	c.done = n.isLeaf() && len(n.keys) == 0
	return c, nil
}

func (c *diffCursor[K, V]) top() diffFrame[K, V] {
	return c.stack[len(c.stack)-1]
}

// descendOneLevel loads the frontier child at the current level and
// pushes it, advancing the cursor one level deeper without skipping
// ahead to a leaf. Diffing checks identity again after each such step,
// so a match found partway down still short-circuits the rest.
func (c *diffCursor[K, V]) descendOneLevel() error {
	f := c.top()
	h := f.n.children[f.idx]
	n, err := h.ensureLoaded(c.t.store, c.t.decodeNode)
	if err != nil {
		return err
	}
	c.stack = append(c.stack, diffFrame[K, V]{n: n, idx: 0})
	return nil
}

// pair reads the key/value the cursor currently sits on. Only valid when
// the top frame is a leaf.
func (c *diffCursor[K, V]) pair() (K, V) {
	f := c.top()
	return f.n.keys[f.idx], f.n.valueAt(f.idx)
}

// advance moves to the next position in ascending key order: the next
// key in the current leaf, or, once a level is exhausted, back up the
// stack to the next sibling one level up. It never auto-descends into a
// freshly reached sibling; the caller's next identity check decides
// whether that subtree needs to be entered at all.
func (c *diffCursor[K, V]) advance() error {
	for {
		top := len(c.stack) - 1
		f := &c.stack[top]
		limit := len(f.n.keys)
		if !f.n.isLeaf() {
			limit = len(f.n.children)
		}
		f.idx++
		if f.idx < limit {
			return nil
		}
		if top == 0 {
			c.done = true
			return nil
		}
		c.stack = c.stack[:top]
	}
}

// DiffAgainst walks this tree and other in ascending key order together,
// reporting keys only in this tree, only in other, and keys present in
// both with unequal values. Both trees must have been built with the
// same comparator; passing two trees built with different ones is
// rejected rather than silently producing a diff in the wrong order.
//
// The walk descends both trees one level at a time and compares the
// child handle each cursor is about to enter before ever loading it.
// Whenever that handle is the identical object on both sides (or, for a
// still-unloaded handle, the same content id), the whole subtree beneath
// it is provably identical and is skipped without visiting a single one
// of its pairs — this holds at every level, not only at the leaf, so a
// large unmodified region inherited from a Clone costs O(height) to skip
// regardless of how many pairs it holds.
func (t *Tree[K, V]) DiffAgainst(other *Tree[K, V], cb DiffCallbacks[K, V]) error {
	if reflect.ValueOf(t.cmp).Pointer() != reflect.ValueOf(other.cmp).Pointer() {
		return newErr(KindComparatorMismatch, "DiffAgainst requires both trees to share a comparator")
	}

	a, err := newDiffCursor(t)
	if err != nil {
		return err
	}
	b, err := newDiffCursor(other)
	if err != nil {
		return err
	}

	for !a.done && !b.done {
		if err := descendToComparablePositions(a, b); err != nil {
			return err
		}
		if a.done || b.done {
			break
		}

		af, bf := a.top(), b.top()
		if af.n == bf.n && af.idx == bf.idx {
			// Same leaf, same position: reached via independent descents
			// that both happened to land on a node shared between the
			// trees. Nothing to report; move past it.
			if err := a.advance(); err != nil {
				return err
			}
			if err := b.advance(); err != nil {
				return err
			}
			continue
		}

		ak, av := a.pair()
		bk, bv := b.pair()
		c, ok := t.cmp(ak, bk)
		if !ok {
			return newErr(KindUnorderableKey, "diff encountered two keys that could not be compared")
		}
		switch {
		case c < 0:
			if cb.OnlyThis != nil {
				cont, err := cb.OnlyThis(ak, av)
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
			}
			if err := a.advance(); err != nil {
				return err
			}
		case c > 0:
			if cb.OnlyOther != nil {
				cont, err := cb.OnlyOther(bk, bv)
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
			}
			if err := b.advance(); err != nil {
				return err
			}
		default:
			if !reflect.DeepEqual(av, bv) && cb.Different != nil {
				cont, err := cb.Different(ak, av, bv)
				if err != nil {
					return err
				}
				if !cont {
					return nil
				}
			}
			if err := a.advance(); err != nil {
				return err
			}
			if err := b.advance(); err != nil {
				return err
			}
		}
	}
	for !a.done {
		if !a.top().n.isLeaf() {
			if err := a.descendOneLevel(); err != nil {
				return err
			}
			continue
		}
		ak, av := a.pair()
		if cb.OnlyThis != nil {
			cont, err := cb.OnlyThis(ak, av)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		if err := a.advance(); err != nil {
			return err
		}
	}
	for !b.done {
		if !b.top().n.isLeaf() {
			if err := b.descendOneLevel(); err != nil {
				return err
			}
			continue
		}
		bk, bv := b.pair()
		if cb.OnlyOther != nil {
			cont, err := cb.OnlyOther(bk, bv)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		if err := b.advance(); err != nil {
			return err
		}
	}
	return nil
}

// descendToComparablePositions brings both cursors down to a leaf frame,
// skipping any internal subtree that both cursors are about to enter via
// the exact same handle. It stops the instant one side reaches a leaf
// and the other hasn't: the still-internal side keeps descending alone
// until it catches up, so trees whose local height differs (one side
// recently split or merged) still line up at comparable positions.
func descendToComparablePositions[K any, V any](a, b *diffCursor[K, V]) error {
	for {
		if a.done || b.done {
			return nil
		}
		af, bf := a.top(), b.top()
		aLeaf, bLeaf := af.n.isLeaf(), bf.n.isLeaf()
		if aLeaf && bLeaf {
			return nil
		}
		if !aLeaf && !bLeaf {
			ah := af.n.children[af.idx]
			bh := bf.n.children[bf.idx]
			if ah == bh || (!ah.loaded && !bh.loaded && ah.id == bh.id) {
				if err := a.advance(); err != nil {
					return err
				}
				if err := b.advance(); err != nil {
					return err
				}
				continue
			}
		}
		if !aLeaf {
			if err := a.descendOneLevel(); err != nil {
				return err
			}
		}
		if !bLeaf {
			if err := b.descendOneLevel(); err != nil {
				return err
			}
		}
	}
}
