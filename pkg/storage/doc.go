// Package storage provides content-addressed blob store backends for
// pkg/bptree.Tree: an in-memory store for tests, an append-only log store
// adapted from FreyjaDB's original write-ahead log, a filesystem-sharded
// store following the reference on-disk layout, and a pebble-backed store
// for production use.
//
// Every backend satisfies bptree.BlobStore: Get, Put and Contains, keyed
// by a node's content id rather than by a user-supplied key.
package storage
