package bptree

// BlobStore is the persistence contract a Tree commits to and loads from.
// It is deliberately synchronous: every known implementation (an in-memory
// map, an append-only log, a pebble instance) is itself synchronous under
// the hood, so a context-carrying async surface would only add a layer of
// indirection with nothing underneath it to cancel.
type BlobStore interface {
	// Get returns the bytes stored under id. ok is false when id is not
	// present; that is not itself an error.
	Get(id string) (data []byte, ok bool, err error)
	// Put stores data under id. Implementations must treat this as
	// idempotent: storing the same id twice with the same bytes is not an
	// error.
	Put(id string, data []byte) error
	// Contains reports whether id is already stored, without fetching its
	// bytes.
	Contains(id string) (bool, error)
}

// handle is the indirection a node reaches its children through. It
// occupies one of three states:
//
//   - Unloaded: loaded is false, id names a blob this handle has not yet
//     fetched.
//   - Loaded, unsaved: loaded is true, saved is false; node is live and has
//     no id yet (or its id is stale after a mutation).
//   - Loaded, saved: loaded is true, saved is true, id is the content id of
//     node's exact current encoding.
//
// A handle that has never touched storage (built directly by a mutation)
// starts Loaded-unsaved. A handle produced by Load starts Unloaded. Commit
// walks Loaded-unsaved handles into Loaded-saved ones.
type handle[K any, V any] struct {
	node   *node[K, V]
	id     string
	loaded bool
	saved  bool
}

func newLoadedHandle[K any, V any](n *node[K, V]) *handle[K, V] {
	return &handle[K, V]{node: n, loaded: true, saved: false}
}

func newUnloadedHandle[K any, V any](id string) *handle[K, V] {
	return &handle[K, V]{id: id, loaded: false, saved: true}
}

// decodeFunc turns a stored blob back into a node. It is supplied by the
// Tree, which knows how to unmarshal K and V from the codec's
// json.RawMessage boxing; handle itself stays generic-only, with no
// dependency on pkg/codec.
type decodeFunc[K any, V any] func(id string, data []byte) (*node[K, V], error)

// ensureLoaded returns this handle's node, fetching and decoding it from
// store on first access. A node that arrives from storage is marked
// shared: it may be this blob's only in-memory instance, but since other
// trees can independently load the same id, nothing about its reachability
// is single-owner, so any future mutation must clone it first.
func (h *handle[K, V]) ensureLoaded(store BlobStore, decode decodeFunc[K, V]) (*node[K, V], error) {
	if h.loaded {
		return h.node, nil
	}
	if store == nil {
		return nil, newErr(KindStoreError, "handle unloaded but tree has no store: "+h.id)
	}
	data, ok, err := store.Get(h.id)
	if err != nil {
		return nil, wrapErr(KindStoreError, "get node "+h.id, err)
	}
	if !ok {
		return nil, newErr(KindStoreError, "missing node blob "+h.id)
	}
	n, err := decode(h.id, data)
	if err != nil {
		return nil, err
	}
	n.shared = true
	h.node = n
	h.loaded = true
	return n, nil
}

// effectiveShared reports whether the node behind this handle must be
// treated as shared, without forcing a load: an unloaded handle always
// behaves as shared, since mutating it requires loading it first anyway
// and the freshly loaded node is marked shared regardless.
func (h *handle[K, V]) effectiveShared() bool {
	if !h.loaded {
		return true
	}
	return h.node.shared
}
