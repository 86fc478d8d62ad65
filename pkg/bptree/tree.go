package bptree

// DefaultFanout is the maximum number of keys a leaf, or children an
// internal node, holds before splitting.
const DefaultFanout = 32

// Pair is a key/value result from a range read.
type Pair[K any, V any] struct {
	Key   K
	Value V
}

// Tree is an ordered key-value container backed by an in-memory B+ tree.
// Mutations never modify a node reachable from another Tree (see Clone):
// a shared node is cloned before it is written to, and the clone's own
// children remain shared until something actually mutates them too.
type Tree[K any, V any] struct {
	cmp       Comparator[K]
	root      *handle[K, V]
	height    int
	size      int
	sizeKnown bool
	frozen    bool
	fanout    int
	minKeys   int
	store     BlobStore
}

// Option configures a Tree at construction time.
type Option[K any, V any] func(*Tree[K, V])

// WithFanout overrides the default fanout. Values below 4 are ignored.
func WithFanout[K any, V any](fanout int) Option[K, V] {
	return func(t *Tree[K, V]) {
		if fanout >= 4 {
			t.fanout = fanout
			t.minKeys = (fanout + 1) / 2
		}
	}
}

// WithStore attaches the blob store Commit and Load operate against.
func WithStore[K any, V any](store BlobStore) Option[K, V] {
	return func(t *Tree[K, V]) { t.store = store }
}

// New creates an empty Tree using cmp as its total order.
func New[K any, V any](cmp Comparator[K], opts ...Option[K, V]) *Tree[K, V] {
	t := &Tree[K, V]{
		cmp:       cmp,
		height:    1,
		sizeKnown: true,
		fanout:    DefaultFanout,
	}
	t.minKeys = (t.fanout + 1) / 2
	for _, o := range opts {
		o(t)
	}
	t.root = newLoadedHandle[K, V](newEmptyLeaf[K, V]())
	return t
}

func (t *Tree[K, V]) checkMutable() error {
	if t.frozen {
		return newErr(KindFrozenTree, "tree is frozen")
	}
	return nil
}

// Freeze forbids further mutation of this Tree handle; other handles
// produced by Clone before the freeze are unaffected.
func (t *Tree[K, V]) Freeze() { t.frozen = true }

// Unfreeze lifts a prior Freeze.
func (t *Tree[K, V]) Unfreeze() { t.frozen = false }

// IsFrozen reports whether mutating calls on this handle are rejected.
func (t *Tree[K, V]) IsFrozen() bool { return t.frozen }

// Height is the number of levels from root to leaf, inclusive.
func (t *Tree[K, V]) Height() int { return t.height }

// IsEmpty reports whether the tree holds no pairs.
func (t *Tree[K, V]) IsEmpty() (bool, error) {
	n, err := t.root.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return false, err
	}
	if n.isLeaf() {
		return len(n.keys) == 0, nil
	}
	return false, nil
}

// Size returns the number of pairs in the tree, scanning once to recompute
// it the first time it is asked for after a Load (persistence does not
// carry size in the node blobs themselves).
func (t *Tree[K, V]) Size() (int, error) {
	if t.sizeKnown {
		return t.size, nil
	}
	count := 0
	_, _, err := t.Walk(nil, nil, false, false, func(K, V) (Directive[V], error) {
		count++
		return NoOp[V](), nil
	})
	if err != nil {
		return 0, err
	}
	t.size = count
	t.sizeKnown = true
	return count, nil
}

// Get returns the value bound to key, if any.
func (t *Tree[K, V]) Get(key K) (V, bool, error) {
	h := t.root
	for {
		n, err := h.ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			var zero V
			return zero, false, err
		}
		if n.isLeaf() {
			return leafGet(n, key, t.cmp)
		}
		idx, err := internalChildIndex(n, key, t.cmp)
		if err != nil {
			var zero V
			return zero, false, err
		}
		h = n.children[idx]
	}
}

// Has reports whether key is bound in the tree.
func (t *Tree[K, V]) Has(key K) (bool, error) {
	_, found, err := t.Get(key)
	return found, err
}

// MinKey returns the smallest key in the tree.
func (t *Tree[K, V]) MinKey() (K, bool, error) {
	stack, err := descendLeftmost(t, nil, t.root)
	if err != nil {
		var zero K
		return zero, false, err
	}
	leaf := stack[len(stack)-1]
	if len(leaf.n.keys) == 0 {
		var zero K
		return zero, false, nil
	}
	return leaf.n.keys[0], true, nil
}

// MaxKey returns the largest key in the tree.
func (t *Tree[K, V]) MaxKey() (K, bool, error) {
	stack, err := descendRightmost(t, nil, t.root)
	if err != nil {
		var zero K
		return zero, false, err
	}
	leaf := stack[len(stack)-1]
	if len(leaf.n.keys) == 0 {
		var zero K
		return zero, false, nil
	}
	return leaf.n.keys[leaf.idx], true, nil
}

// GetPairOrNextLower returns the pair at key if present, otherwise the pair
// with the largest key strictly less than key.
func (t *Tree[K, V]) GetPairOrNextLower(key K) (K, V, bool, error) {
	stack, found, err := findPath(t, key)
	if err != nil {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	if found {
		k, v := pathPair(stack)
		return k, v, true, nil
	}
	prev, ok, err := stepPrev(t, stack)
	if err != nil || !ok {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	k, v := pathPair(prev)
	return k, v, true, nil
}

// GetPairOrNextHigher returns the pair at key if present, otherwise the
// pair with the smallest key strictly greater than key.
func (t *Tree[K, V]) GetPairOrNextHigher(key K) (K, V, bool, error) {
	stack, found, err := findPath(t, key)
	if err != nil {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	if found {
		k, v := pathPair(stack)
		return k, v, true, nil
	}
	leaf := stack[len(stack)-1]
	if leaf.idx < len(leaf.n.keys) {
		k, v := pathPair(stack)
		return k, v, true, nil
	}
	next, ok, err := stepNext(t, stack)
	if err != nil || !ok {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	k, v := pathPair(next)
	return k, v, true, nil
}

// NextLowerPair returns the pair with the largest key strictly less than
// key, whether or not key itself is present.
func (t *Tree[K, V]) NextLowerPair(key K) (K, V, bool, error) {
	stack, _, err := findPath(t, key)
	if err != nil {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	prev, ok, err := stepPrev(t, stack)
	if err != nil || !ok {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	k, v := pathPair(prev)
	return k, v, true, nil
}

// NextHigherPair returns the pair with the smallest key strictly greater
// than key, whether or not key itself is present.
func (t *Tree[K, V]) NextHigherPair(key K) (K, V, bool, error) {
	stack, found, err := findPath(t, key)
	if err != nil {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	if found {
		next, ok, err := stepNext(t, stack)
		if err != nil || !ok {
			var zk K
			var zv V
			return zk, zv, false, err
		}
		k, v := pathPair(next)
		return k, v, true, nil
	}
	leaf := stack[len(stack)-1]
	if leaf.idx < len(leaf.n.keys) {
		k, v := pathPair(stack)
		return k, v, true, nil
	}
	next, ok, err := stepNext(t, stack)
	if err != nil || !ok {
		var zk K
		var zv V
		return zk, zv, false, err
	}
	k, v := pathPair(next)
	return k, v, true, nil
}

// Set binds key to value, inserting or updating as needed, and reports
// whether a new pair was added. When overwrite is false and key already
// exists, Set leaves the tree untouched and returns false.
func (t *Tree[K, V]) Set(key K, value V, overwrite bool) (bool, error) {
	if err := t.checkMutable(); err != nil {
		return false, err
	}
	if !overwrite {
		if has, err := t.Has(key); err != nil {
			return false, err
		} else if has {
			return false, nil
		}
	}
	newRoot, splitH, inserted, err := t.insertRec(t.root, key, value)
	if err != nil {
		return false, err
	}
	if splitH == nil {
		t.root = newRoot
	} else {
		lm, _ := newRoot.node.maxKey()
		rm, _ := splitH.node.maxKey()
		t.root = newLoadedHandle[K, V](newInternal([]*handle[K, V]{newRoot, splitH}, []K{lm, rm}))
		t.height++
	}
	if inserted && t.sizeKnown {
		t.size++
	}
	return inserted, nil
}

func (t *Tree[K, V]) insertRec(h *handle[K, V], key K, value V) (*handle[K, V], *handle[K, V], bool, error) {
	n, err := h.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return nil, nil, false, err
	}
	owned := n
	if n.shared {
		owned = n.shallowCloneShared()
	}
	if owned.isLeaf() {
		_, inserted, err := leafSet(owned, key, value, t.cmp)
		if err != nil {
			return nil, nil, false, err
		}
		if owned.count() <= t.fanout {
			return newLoadedHandle(owned), nil, inserted, nil
		}
		left, right := splitLeaf(owned)
		return newLoadedHandle(left), newLoadedHandle(right), inserted, nil
	}
	idx, err := internalChildIndex(owned, key, t.cmp)
	if err != nil {
		return nil, nil, false, err
	}
	newChildH, splitH, inserted, err := t.insertRec(owned.children[idx], key, value)
	if err != nil {
		return nil, nil, false, err
	}
	owned.children[idx] = newChildH
	refreshMaxKey(owned, idx)
	if splitH != nil {
		sm, _ := splitH.node.maxKey()
		internalInsertChild(owned, idx+1, splitH, sm)
	}
	if owned.count() <= t.fanout {
		return newLoadedHandle(owned), nil, inserted, nil
	}
	left, right := splitInternal(owned)
	return newLoadedHandle(left), newLoadedHandle(right), inserted, nil
}

// Delete removes key if present, reporting whether it was found.
func (t *Tree[K, V]) Delete(key K) (bool, error) {
	if err := t.checkMutable(); err != nil {
		return false, err
	}
	newRoot, deleted, err := t.deleteRec(t.root, key)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	n := newRoot.node
	for !n.isLeaf() && len(n.children) == 1 {
		newRoot = n.children[0]
		t.height--
		loaded, err := newRoot.ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			return false, err
		}
		n = loaded
	}
	t.root = newRoot
	if t.sizeKnown {
		t.size--
	}
	return true, nil
}

func (t *Tree[K, V]) deleteRec(h *handle[K, V], key K) (*handle[K, V], bool, error) {
	n, err := h.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return nil, false, err
	}
	owned := n
	if n.shared {
		owned = n.shallowCloneShared()
	}
	if owned.isLeaf() {
		found, err := leafDelete(owned, key, t.cmp)
		if err != nil {
			return nil, false, err
		}
		return newLoadedHandle(owned), found, nil
	}
	idx, err := internalChildIndex(owned, key, t.cmp)
	if err != nil {
		return nil, false, err
	}
	newChildH, deleted, err := t.deleteRec(owned.children[idx], key)
	if err != nil {
		return nil, false, err
	}
	if !deleted {
		return h, false, nil
	}
	owned.children[idx] = newChildH
	refreshMaxKey(owned, idx)
	if newChildH.node.count() < t.minKeys && len(owned.children) > 1 {
		if err := t.rebalance(owned, idx); err != nil {
			return nil, false, err
		}
	}
	return newLoadedHandle(owned), true, nil
}

// rebalance repairs an underfull child at idx by borrowing from a sibling
// or merging with one. owned is already exclusively owned by the caller.
func (t *Tree[K, V]) rebalance(owned *node[K, V], idx int) error {
	child := owned.children[idx].node
	if idx > 0 {
		leftN, err := owned.children[idx-1].ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			return err
		}
		if leftN.count() > t.minKeys {
			leftOwned := leftN
			if leftN.shared {
				leftOwned = leftN.shallowCloneShared()
			}
			if child.isLeaf() {
				leafBorrowFromLeft(leftOwned, child)
			} else {
				internalBorrowFromLeft(leftOwned, child)
			}
			owned.children[idx-1] = newLoadedHandle(leftOwned)
			refreshMaxKey(owned, idx-1)
			refreshMaxKey(owned, idx)
			return nil
		}
	}
	if idx < len(owned.children)-1 {
		rightN, err := owned.children[idx+1].ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			return err
		}
		if rightN.count() > t.minKeys {
			rightOwned := rightN
			if rightN.shared {
				rightOwned = rightN.shallowCloneShared()
			}
			if child.isLeaf() {
				leafBorrowFromRight(child, rightOwned)
			} else {
				internalBorrowFromRight(child, rightOwned)
			}
			owned.children[idx+1] = newLoadedHandle(rightOwned)
			refreshMaxKey(owned, idx)
			refreshMaxKey(owned, idx+1)
			return nil
		}
	}
	if idx > 0 {
		leftN, err := owned.children[idx-1].ensureLoaded(t.store, t.decodeNode)
		if err != nil {
			return err
		}
		leftOwned := leftN
		if leftN.shared {
			leftOwned = leftN.shallowCloneShared()
		}
		var merged *node[K, V]
		if child.isLeaf() {
			merged = leafMerge(leftOwned, child)
		} else {
			merged = internalMerge(leftOwned, child)
		}
		owned.children[idx-1] = newLoadedHandle(merged)
		internalRemoveChild(owned, idx)
		refreshMaxKey(owned, idx-1)
		return nil
	}
	rightN, err := owned.children[idx+1].ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return err
	}
	rightOwned := rightN
	if rightN.shared {
		rightOwned = rightN.shallowCloneShared()
	}
	var merged *node[K, V]
	if child.isLeaf() {
		merged = leafMerge(child, rightOwned)
	} else {
		merged = internalMerge(child, rightOwned)
	}
	owned.children[idx] = newLoadedHandle(merged)
	internalRemoveChild(owned, idx+1)
	refreshMaxKey(owned, idx)
	return nil
}

// Clone returns a new Tree sharing this tree's current nodes. The shared
// flag is set on the root so any future mutation on either handle clones
// before writing; the cost of cloning is paid lazily, one node at a time,
// as mutations actually touch each side.
func (t *Tree[K, V]) Clone() *Tree[K, V] {
	if t.root.loaded {
		t.root.node.shared = true
	}
	clone := *t
	clone.frozen = false
	return &clone
}

// GreedyClone behaves like Clone but, instead of marking the root shared
// and letting clone-on-write spread lazily down whichever path either
// tree mutates first, eagerly duplicates every node that is not already
// shared (and, with force true, every node including already-shared
// ones). This avoids propagating shared-ness onto subtrees neither tree
// actually needs to share: a subtree already marked shared before the
// call is reused by reference on the new tree (duplicating it would buy
// nothing, since COW already guards it), but an unshared subtree is
// copied outright so neither tree's future mutations ever need to clone
// it on the other's behalf.
func (t *Tree[K, V]) GreedyClone(force bool) (*Tree[K, V], error) {
	newRoot, err := t.greedyCloneHandle(t.root, force)
	if err != nil {
		return nil, err
	}
	clone := *t
	clone.frozen = false
	clone.root = newRoot
	return &clone, nil
}

func (t *Tree[K, V]) greedyCloneHandle(h *handle[K, V], force bool) (*handle[K, V], error) {
	n, err := h.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		return nil, err
	}
	if !force && n.shared {
		return h, nil
	}
	dup := n.shallowClone()
	if !dup.isLeaf() {
		children := make([]*handle[K, V], len(n.children))
		for i, c := range n.children {
			nc, err := t.greedyCloneHandle(c, force)
			if err != nil {
				return nil, err
			}
			children[i] = nc
		}
		dup.children = children
	}
	return newLoadedHandle[K, V](dup), nil
}

// With returns a clone of this tree with key bound to value.
func (t *Tree[K, V]) With(key K, value V) (*Tree[K, V], error) {
	nt := t.Clone()
	if _, err := nt.Set(key, value, true); err != nil {
		return nil, err
	}
	return nt, nil
}

// Without returns a clone of this tree with key removed, if present.
func (t *Tree[K, V]) Without(key K) (*Tree[K, V], error) {
	nt := t.Clone()
	if _, err := nt.Delete(key); err != nil {
		return nil, err
	}
	return nt, nil
}

// WithoutRange returns a clone of this tree with every pair in
// [lower,upper] (honoring upperIncl, and lowerIncl always true as in
// DeleteRange) removed.
func (t *Tree[K, V]) WithoutRange(lower, upper *K, upperIncl bool) (*Tree[K, V], error) {
	nt := t.Clone()
	if _, err := nt.DeleteRange(lower, upper, true, upperIncl); err != nil {
		return nil, err
	}
	return nt, nil
}

// WithPairs returns a clone of this tree with every pair set, honoring
// overwrite the way SetPairs does.
func (t *Tree[K, V]) WithPairs(pairs []Pair[K, V], overwrite bool) (*Tree[K, V], error) {
	nt := t.Clone()
	if _, err := nt.SetPairs(pairs, overwrite); err != nil {
		return nil, err
	}
	return nt, nil
}

// WithKeys returns a clone of this tree with every key bound to the zero
// value of V, leaving any key already present untouched.
func (t *Tree[K, V]) WithKeys(keys []K) (*Tree[K, V], error) {
	nt := t.Clone()
	for _, k := range keys {
		var zero V
		if _, err := nt.Set(k, zero, false); err != nil {
			return nil, err
		}
	}
	return nt, nil
}

// WithoutKeys returns a clone of this tree with every listed key removed.
func (t *Tree[K, V]) WithoutKeys(keys []K) (*Tree[K, V], error) {
	nt := t.Clone()
	for _, k := range keys {
		if _, err := nt.Delete(k); err != nil {
			return nil, err
		}
	}
	return nt, nil
}

// Filter returns a clone of this tree keeping only pairs for which keep
// returns true.
func (t *Tree[K, V]) Filter(keep func(K, V) (bool, error)) (*Tree[K, V], error) {
	nt := t.Clone()
	_, _, err := nt.EditRange(nil, nil, false, false, func(k K, v V) (Directive[V], error) {
		ok, err := keep(k, v)
		if err != nil {
			return Directive[V]{}, err
		}
		if ok {
			return NoOp[V](), nil
		}
		return Delete[V](), nil
	})
	if err != nil {
		return nil, err
	}
	return nt, nil
}

// MapValues returns a clone of this tree with every value replaced by
// f(key, value).
func (t *Tree[K, V]) MapValues(f func(K, V) (V, error)) (*Tree[K, V], error) {
	nt := t.Clone()
	_, _, err := nt.EditRange(nil, nil, false, false, func(k K, v V) (Directive[V], error) {
		nv, err := f(k, v)
		if err != nil {
			return Directive[V]{}, err
		}
		return Replace(nv), nil
	})
	if err != nil {
		return nil, err
	}
	return nt, nil
}

// SetPairs is a batch convenience over Set, returning the count of pairs
// that were newly added (as opposed to overwritten).
func (t *Tree[K, V]) SetPairs(pairs []Pair[K, V], overwrite bool) (int, error) {
	added := 0
	for _, p := range pairs {
		inserted, err := t.Set(p.Key, p.Value, overwrite)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	return added, nil
}

// CheckValid walks the whole tree verifying I1/I2/I3 (sort order, fanout
// bounds, cached max-key correctness) and returns the first violation
// found, wrapped as a CorruptNode error.
func (t *Tree[K, V]) CheckValid() error {
	_, _, err := t.checkValidRec(t.root, true)
	return err
}

func (t *Tree[K, V]) checkValidRec(h *handle[K, V], isRoot bool) (K, bool, error) {
	n, err := h.ensureLoaded(t.store, t.decodeNode)
	if err != nil {
		var zero K
		return zero, false, err
	}
	if n.isLeaf() {
		if !isRoot && (n.count() < t.minKeys || n.count() > t.fanout) {
			var zero K
			return zero, false, newErr(KindCorruptNode, "leaf fanout out of bounds")
		}
		for i := 1; i < len(n.keys); i++ {
			c, ok := t.cmp(n.keys[i-1], n.keys[i])
			if !ok || c >= 0 {
				var zero K
				return zero, false, newErr(KindCorruptNode, "leaf keys not strictly increasing")
			}
		}
		m, ok := n.maxKey()
		return m, ok, nil
	}
	if !isRoot && (n.count() < t.minKeys || n.count() > t.fanout) {
		var zero K
		return zero, false, newErr(KindCorruptNode, "internal fanout out of bounds")
	}
	var prevMax K
	havePrev := false
	for i, c := range n.children {
		m, ok, err := t.checkValidRec(c, false)
		if err != nil {
			var zero K
			return zero, false, err
		}
		if !ok {
			var zero K
			return zero, false, newErr(KindCorruptNode, "internal child reports no max key")
		}
		if havePrev {
			cc, ok := t.cmp(prevMax, m)
			if !ok || cc >= 0 {
				var zero K
				return zero, false, newErr(KindCorruptNode, "internal children not strictly increasing")
			}
		}
		prevMax, havePrev = m, true
		if cmpR, ok := t.cmp(n.maxKeys[i], m); !ok || cmpR != 0 {
			var zero K
			return zero, false, newErr(KindCorruptNode, "cached max key out of sync with child")
		}
	}
	m, ok := n.maxKey()
	return m, ok, nil
}
