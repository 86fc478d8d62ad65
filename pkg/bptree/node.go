package bptree

// nodeKind tags which variant a node is. Leaf and Internal are a closed set
// of two, so a tagged struct with kind-dispatching methods is used instead
// of an interface + two implementing types.
type nodeKind uint8

const (
	leafNode nodeKind = iota
	internalNode
)

// node is either a Leaf or an Internal node, as described in spec.md §3.
//
// Leaf: keys[0..n] and a parallel values[0..n]. valuesSet is false while the
// leaf holds keys only (a fresh empty leaf, or one decoded from a blob that
// carries no values, until reify materializes them); in that state every
// key reads back as the zero value of V, which is
// indistinguishable from an explicitly-stored zero value through the public
// API, exactly as spec.md requires.
//
// Internal: children[0..n] (node handles) and a parallel maxKeys[0..n]
// caching children[i].max_key().
type node[K any, V any] struct {
	kind   nodeKind
	shared bool

	keys      []K
	values    []V
	valuesSet bool

	children []*handle[K, V]
	maxKeys  []K
}

func newEmptyLeaf[K any, V any]() *node[K, V] {
	return &node[K, V]{kind: leafNode}
}

func newLeaf[K any, V any](keys []K, values []V, valuesSet bool) *node[K, V] {
	return &node[K, V]{kind: leafNode, keys: keys, values: values, valuesSet: valuesSet}
}

func newInternal[K any, V any](children []*handle[K, V], maxKeys []K) *node[K, V] {
	return &node[K, V]{kind: internalNode, children: children, maxKeys: maxKeys}
}

func (n *node[K, V]) isLeaf() bool { return n.kind == leafNode }

// count is the number of keys (leaf) or separators (internal) in this node.
func (n *node[K, V]) count() int { return len(n.keys) }

// maxKey returns the largest key reachable from this node and false if the
// node is empty (only possible for the root of an empty tree).
func (n *node[K, V]) maxKey() (K, bool) {
	var zero K
	if n.isLeaf() {
		if len(n.keys) == 0 {
			return zero, false
		}
		return n.keys[len(n.keys)-1], true
	}
	if len(n.maxKeys) == 0 {
		return zero, false
	}
	return n.maxKeys[len(n.maxKeys)-1], true
}

// valueAt returns the value bound to keys[i], honoring the absent-values
// sentinel.
func (n *node[K, V]) valueAt(i int) V {
	if !n.valuesSet {
		var zero V
		return zero
	}
	return n.values[i]
}

// reify materializes the values slice if this leaf was built keys-only.
func (n *node[K, V]) reify() {
	if n.valuesSet {
		return
	}
	n.values = make([]V, len(n.keys))
	n.valuesSet = true
}

// shallowClone copies this node's top-level slices into fresh backing
// arrays (copy-on-write: the elements — child handle pointers, key/value
// values — are shared, only the container is new) and clears the shared
// flag, since the clone is reachable from exactly one path until proven
// otherwise.
func (n *node[K, V]) shallowClone() *node[K, V] {
	c := &node[K, V]{kind: n.kind, valuesSet: n.valuesSet}
	if n.isLeaf() {
		c.keys = append([]K(nil), n.keys...)
		if n.valuesSet {
			c.values = append([]V(nil), n.values...)
		}
		return c
	}
	c.children = append([]*handle[K, V](nil), n.children...)
	c.maxKeys = append([]K(nil), n.maxKeys...)
	return c
}

// shallowCloneShared is shallowClone for the case where n itself was
// shared. Sharing is transitive by convention (spec.md §3): the clone's
// children slice still holds the exact same handle pointers the shared
// original pointed at, so whichever tree reaches one of those children
// next must still clone before mutating it, even though the child's own
// flag was never set. Marking each already-loaded child shared here,
// once, at the point the sharing is inherited, is what makes that true
// without requiring every call site to recompute it.
func (n *node[K, V]) shallowCloneShared() *node[K, V] {
	c := n.shallowClone()
	if !c.isLeaf() {
		for _, ch := range c.children {
			if ch.loaded {
				ch.node.shared = true
			}
		}
	}
	return c
}
