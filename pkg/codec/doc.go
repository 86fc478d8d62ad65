// Package codec provides the canonical, content-addressed wire format for
// B+ tree nodes.
//
// A node serializes to a NodeBlob carrying its type, keys, values (leaves
// only) and child content ids (internal nodes only). The canonical byte form
// is deterministic JSON (Go's encoding/json emits struct fields in
// declaration order, so two NodeBlobs with equal logical content always
// produce identical bytes). The id of a node is the lowercase-hex SHA-256
// digest of those canonical bytes.
//
// This mirrors FreyjaDB's original log-record codec (CRC32 header framing
// over a binary key/value record) one layer up the stack: instead of
// checksumming a single key/value pair for a write-ahead log, it hashes a
// whole node's canonical encoding so the hash itself can serve as the node's
// address in a content-addressed blob store.
package codec
