package bptree

import (
	"encoding/json"

	"freyjatree/pkg/codec"
)

func marshalAny[T any](v T) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func unmarshalAny[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}

func (t *Tree[K, V]) decodeNode(id string, data []byte) (*node[K, V], error) {
	blob, err := codec.Decode(data)
	if err != nil {
		return nil, wrapErr(KindCorruptNode, "decode node "+id, err)
	}
	switch blob.Type {
	case codec.TypeLeaf:
		keys := make([]K, len(blob.Keys))
		for i, raw := range blob.Keys {
			k, err := unmarshalAny[K](raw)
			if err != nil {
				return nil, wrapErr(KindCorruptNode, "decode leaf key", err)
			}
			keys[i] = k
		}
		if blob.ValuesAbsent {
			return newLeaf[K, V](keys, nil, false), nil
		}
		values := make([]V, len(blob.Values))
		for i, raw := range blob.Values {
			v, err := unmarshalAny[V](raw)
			if err != nil {
				return nil, wrapErr(KindCorruptNode, "decode leaf value", err)
			}
			values[i] = v
		}
		return newLeaf[K, V](keys, values, true), nil
	case codec.TypeBranch:
		maxKeys := make([]K, len(blob.Keys))
		for i, raw := range blob.Keys {
			k, err := unmarshalAny[K](raw)
			if err != nil {
				return nil, wrapErr(KindCorruptNode, "decode branch separator", err)
			}
			maxKeys[i] = k
		}
		children := make([]*handle[K, V], len(blob.Children))
		for i, cid := range blob.Children {
			children[i] = newUnloadedHandle[K, V](cid)
		}
		return newInternal[K, V](children, maxKeys), nil
	default:
		return nil, newErr(KindCorruptNode, "unknown node blob type")
	}
}

func (t *Tree[K, V]) encodeNode(n *node[K, V]) ([]byte, error) {
	blob := &codec.NodeBlob{}
	if n.isLeaf() {
		blob.Type = codec.TypeLeaf
		blob.Keys = make([]json.RawMessage, len(n.keys))
		for i, k := range n.keys {
			raw, err := marshalAny(k)
			if err != nil {
				return nil, wrapErr(KindCorruptNode, "encode leaf key", err)
			}
			blob.Keys[i] = raw
		}
		if !n.valuesSet {
			blob.ValuesAbsent = true
		} else {
			blob.Values = make([]json.RawMessage, len(n.values))
			for i, v := range n.values {
				raw, err := marshalAny(v)
				if err != nil {
					return nil, wrapErr(KindCorruptNode, "encode leaf value", err)
				}
				blob.Values[i] = raw
			}
		}
		return codec.Encode(blob)
	}
	blob.Type = codec.TypeBranch
	blob.Keys = make([]json.RawMessage, len(n.maxKeys))
	for i, k := range n.maxKeys {
		raw, err := marshalAny(k)
		if err != nil {
			return nil, wrapErr(KindCorruptNode, "encode branch separator", err)
		}
		blob.Keys[i] = raw
	}
	blob.Children = make([]string, len(n.children))
	for i, c := range n.children {
		blob.Children[i] = c.id
	}
	return codec.Encode(blob)
}

// Commit writes every node reachable from the root that is not already
// present in the store (by content id) and returns the root's content id.
// The walk is bottom-up and idempotent: a node whose id is already known
// to be saved, because it was loaded unchanged from the store or because
// an earlier Commit already wrote it, is never re-encoded or re-written.
func (t *Tree[K, V]) Commit() (string, error) {
	if t.store == nil {
		return "", newErr(KindStoreError, "tree has no attached store")
	}
	return t.commitRec(t.root)
}

func (t *Tree[K, V]) commitRec(h *handle[K, V]) (string, error) {
	if h.saved {
		return h.id, nil
	}
	n := h.node
	if !n.isLeaf() {
		for _, c := range n.children {
			if _, err := t.commitRec(c); err != nil {
				return "", err
			}
		}
	}
	data, err := t.encodeNode(n)
	if err != nil {
		return "", err
	}
	id := codec.ContentID(data)
	exists, err := t.store.Contains(id)
	if err != nil {
		return "", wrapErr(KindStoreError, "contains "+id, err)
	}
	if !exists {
		if err := t.store.Put(id, data); err != nil {
			return "", wrapErr(KindStoreError, "put "+id, err)
		}
	}
	h.id = id
	h.saved = true
	return id, nil
}

// Load opens a tree whose root was previously committed as id. Nothing is
// fetched from store until an operation actually needs it: Load only walks
// leftmost children far enough to learn the tree's height.
func Load[K any, V any](id string, cmp Comparator[K], store BlobStore, opts ...Option[K, V]) (*Tree[K, V], error) {
	t := New[K, V](cmp, opts...)
	t.store = store
	t.root = newUnloadedHandle[K, V](id)
	t.sizeKnown = false
	stack, err := descendLeftmost(t, nil, t.root)
	if err != nil {
		return nil, err
	}
	t.height = len(stack)
	return t, nil
}
