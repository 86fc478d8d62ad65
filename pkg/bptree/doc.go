// Package bptree implements an ordered, in-memory key-value container backed
// by a B+ tree. Two capabilities sit on top of the usual search/insert/delete
// surface: O(1) copy-on-write cloning through node sharing, and optional
// content-addressed persistence, where nodes are serialized, hashed, and
// lazily rehydrated from a blob store.
//
// A Tree is parameterized over a key type K and a value type V. Keys are
// opaque to the tree apart from the Comparator supplied at construction; the
// same comparator must be used for every operation on a tree and for
// cross-tree diffing.
package bptree
