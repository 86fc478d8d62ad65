package bptree

// RangeVisitor is called once per pair in a scanned range, in ascending key
// order, and decides what happens to it next via the returned Directive.
type RangeVisitor[K any, V any] func(key K, value V) (Directive[V], error)

// Walk is the single traversal that backs GetRange, ForRange, EditRange and
// DeleteRange: it visits every pair with lower <= key <= upper (bounds
// honoring lowerIncl/upperIncl, nil meaning unbounded on that side) and
// applies whatever the visitor returns. A visitor that never returns
// Replace or Delete never triggers a clone, so read-only callers pay
// nothing for copy-on-write.
func (t *Tree[K, V]) Walk(lower, upper *K, lowerIncl, upperIncl bool, visit RangeVisitor[K, V]) (result any, broke bool, err error) {
	newRoot, mutated, brk, brkVal, err := t.walkRec(t.root, lower, upper, lowerIncl, upperIncl, visit)
	if err != nil {
		return nil, false, err
	}
	t.root = newRoot
	n, err := t.root.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return nil, false, err
	}
	for !n.isLeaf() && len(n.children) == 1 {
		t.root = n.children[0]
		t.height--
		n, err = t.root.ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			return nil, false, err
		}
	}
	if mutated {
		t.sizeKnown = false
	}
	return brkVal, brk, nil
}

func (t *Tree[K, V]) walkRec(h *handle[K, V], lower, upper *K, lowerIncl, upperIncl bool, visit RangeVisitor[K, V]) (*handle[K, V], bool, bool, any, error) {
	n, err := h.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return nil, false, false, nil, err
	}
	if n.isLeaf() {
		return t.walkLeaf(h, n, lower, upper, lowerIncl, upperIncl, visit)
	}
	return t.walkInternal(h, n, lower, upper, lowerIncl, upperIncl, visit)
}

func (t *Tree[K, V]) walkLeaf(h *handle[K, V], n *node[K, V], lower, upper *K, lowerIncl, upperIncl bool, visit RangeVisitor[K, V]) (*handle[K, V], bool, bool, any, error) {
	start := 0
	if lower != nil {
		idx, found, err := leafSearch(n, *lower, t.cmp)
		if err != nil {
			return nil, false, false, nil, err
		}
		start = idx
		if found && !lowerIncl {
			start++
		}
	}
	end := len(n.keys)
	if upper != nil {
		idx, found, err := leafSearch(n, *upper, t.cmp)
		if err != nil {
			return nil, false, false, nil, err
		}
		end = idx
		if found && upperIncl {
			end = idx + 1
		}
	}
	if start >= end {
		return h, false, false, nil, nil
	}

	var newKeys []K
	var newValues []V
	valuesSet := n.valuesSet
	mutated := false
	brk := false
	var brkVal any

	i := start
	for ; i < end; i++ {
		k := n.keys[i]
		v := n.valueAt(i)
		d, err := visit(k, v)
		if err != nil {
			return nil, false, false, nil, err
		}
		if !mutated && (d.deletes() || d.replaces()) {
			if t.frozen {
				return nil, false, false, nil, newErr(KindFrozenTree, "mutating directive returned on frozen tree")
			}
			mutated = true
			newKeys = append([]K(nil), n.keys[:i]...)
			if valuesSet {
				newValues = append([]V(nil), n.values[:i]...)
			}
		}
		if mutated {
			switch {
			case d.deletes():
				// omit
			case d.replaces():
				if !valuesSet {
					valuesSet = true
					newValues = make([]V, len(newKeys))
				}
				newKeys = append(newKeys, k)
				newValues = append(newValues, d.value)
			default:
				newKeys = append(newKeys, k)
				if valuesSet {
					newValues = append(newValues, v)
				}
			}
		}
		if d.breaks() {
			brk = true
			brkVal = d.breakR
			i++
			break
		}
	}
	if mutated {
		newKeys = append(newKeys, n.keys[i:]...)
		if valuesSet {
			if !n.valuesSet {
				newValues = append(newValues, make([]V, len(n.keys)-i)...)
			} else {
				newValues = append(newValues, n.values[i:]...)
			}
		}
		return newLoadedHandle(newLeaf(newKeys, newValues, valuesSet)), true, brk, brkVal, nil
	}
	return h, false, brk, brkVal, nil
}

func (t *Tree[K, V]) walkInternal(h *handle[K, V], n *node[K, V], lower, upper *K, lowerIncl, upperIncl bool, visit RangeVisitor[K, V]) (*handle[K, V], bool, bool, any, error) {
	startIdx := 0
	if lower != nil {
		idx, err := internalChildIndex(n, *lower, t.cmp)
		if err != nil {
			return nil, false, false, nil, err
		}
		startIdx = idx
	}

	var newChildren []*handle[K, V]
	var newMaxKeys []K
	mutated := false
	brk := false
	var brkVal any

	i := startIdx
	for ; i < len(n.children); i++ {
		childH := n.children[i]
		newChildH, childMutated, childBrk, childBrkVal, err := t.walkRec(childH, lower, upper, lowerIncl, upperIncl, visit)
		if err != nil {
			return nil, false, false, nil, err
		}
		if childMutated && !mutated {
			mutated = true
			newChildren = append([]*handle[K, V](nil), n.children[:i]...)
			newMaxKeys = append([]K(nil), n.maxKeys[:i]...)
		}
		if mutated {
			newChildren = append(newChildren, newChildH)
			if m, ok := newChildH.node.maxKey(); ok {
				newMaxKeys = append(newMaxKeys, m)
			} else {
				newMaxKeys = append(newMaxKeys, n.maxKeys[i])
			}
		}
		if childBrk {
			brk = true
			brkVal = childBrkVal
			i++
			break
		}
		if upper != nil {
			if m, ok := newChildH.node.maxKey(); ok {
				c, ok := t.cmp(m, *upper)
				if ok && (c > 0 || (c == 0 && !upperIncl)) {
					i++
					break
				}
			}
		}
	}
	if mutated {
		newChildren = append(newChildren, n.children[i:]...)
		newMaxKeys = append(newMaxKeys, n.maxKeys[i:]...)
		owned := newInternal(newChildren, newMaxKeys)
		lo := startIdx - 1
		if err := t.sweepUnderfull(owned, lo, len(owned.children)); err != nil {
			return nil, false, false, nil, err
		}
		return newLoadedHandle(owned), true, brk, brkVal, nil
	}
	return h, false, brk, brkVal, nil
}

// sweepUnderfull implements spec.md §4.4's post-scan pass: after an edit or
// delete range touches some of owned's children, walk back from hi-1 down
// to lo looking for children that fell under fanout/2 (or to zero) and
// merge or borrow to repair them, reusing the same rebalance logic Delete
// uses for a single path. Children outside [lo,hi) were never visited by
// the scan and cannot have changed, so they are left alone.
func (t *Tree[K, V]) sweepUnderfull(owned *node[K, V], lo, hi int) error {
	if lo < 0 {
		lo = 0
	}
	if hi > len(owned.children) {
		hi = len(owned.children)
	}
	for i := hi - 1; i >= lo; i-- {
		if len(owned.children) <= 1 {
			return nil
		}
		if i >= len(owned.children) {
			i = len(owned.children) - 1
		}
		child, err := owned.children[i].ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			return err
		}
		if child.count() < t.minKeys {
			if err := t.rebalance(owned, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetRange returns every pair with lower <= key <= upper (bounds honoring
// lowerIncl/upperIncl, nil meaning unbounded) in ascending key order.
func (t *Tree[K, V]) GetRange(lower, upper *K, lowerIncl, upperIncl bool) ([]Pair[K, V], error) {
	var out []Pair[K, V]
	_, _, err := t.Walk(lower, upper, lowerIncl, upperIncl, func(k K, v V) (Directive[V], error) {
		out = append(out, Pair[K, V]{Key: k, Value: v})
		return NoOp[V](), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ForRange scans a range applying visit to each pair, honoring any
// Replace/Delete/Break directive it returns.
func (t *Tree[K, V]) ForRange(lower, upper *K, lowerIncl, upperIncl bool, visit RangeVisitor[K, V]) (any, bool, error) {
	return t.Walk(lower, upper, lowerIncl, upperIncl, visit)
}

// EditRange is ForRange under the name spec.md gives the mutating case; the
// traversal is identical, since a single recursive algorithm serves both.
func (t *Tree[K, V]) EditRange(lower, upper *K, lowerIncl, upperIncl bool, visit RangeVisitor[K, V]) (any, bool, error) {
	if err := t.checkMutable(); err != nil {
		return nil, false, err
	}
	return t.Walk(lower, upper, lowerIncl, upperIncl, visit)
}

// DeleteRange removes every pair with lower <= key <= upper and returns how
// many pairs were removed.
func (t *Tree[K, V]) DeleteRange(lower, upper *K, lowerIncl, upperIncl bool) (int, error) {
	if err := t.checkMutable(); err != nil {
		return 0, err
	}
	count := 0
	_, _, err := t.Walk(lower, upper, lowerIncl, upperIncl, func(K, V) (Directive[V], error) {
		count++
		return Delete[V](), nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
