package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"freyjatree/pkg/bptree"
	"freyjatree/pkg/storage"
)

// openBlobStore opens the filesystem-backed blob store rooted under
// dataDir, creating it on first use.
func openBlobStore(dataDir string) (*storage.FSBlobStore, error) {
	return storage.NewFSBlobStore(filepath.Join(dataDir, "blobs"))
}

func headPath(dataDir string) string {
	return filepath.Join(dataDir, "HEAD")
}

// readHead returns the content id of the currently committed root, and
// false if no tree has been committed under dataDir yet.
func readHead(dataDir string) (string, bool, error) {
	data, err := os.ReadFile(headPath(dataDir))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read HEAD: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

func writeHead(dataDir, id string) error {
	return os.WriteFile(headPath(dataDir), []byte(id+"\n"), 0o640)
}

// openTree loads the tree currently pointed to by HEAD, or returns a fresh
// empty tree backed by the same store when no HEAD exists yet.
func openTree(dataDir string, fanout int) (*bptree.Tree[string, string], *storage.FSBlobStore, error) {
	store, err := openBlobStore(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open blob store: %w", err)
	}
	id, ok, err := readHead(dataDir)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		tr := bptree.New[string, string](bptree.StringComparator(), bptree.WithFanout[string, string](fanout), bptree.WithStore[string, string](store))
		return tr, store, nil
	}
	tr, err := bptree.Load[string, string](id, bptree.StringComparator(), store, bptree.WithFanout[string, string](fanout))
	if err != nil {
		return nil, nil, fmt.Errorf("load tree at %s: %w", id, err)
	}
	return tr, store, nil
}

// commitAndAdvanceHead writes every newly reachable node to store and
// rewrites HEAD to point at the result, the way a mutating command leaves
// its change durable for the next invocation.
func commitAndAdvanceHead(tr *bptree.Tree[string, string], dataDir string) (string, error) {
	id, err := tr.Commit()
	if err != nil {
		return "", fmt.Errorf("commit tree: %w", err)
	}
	if err := writeHead(dataDir, id); err != nil {
		return "", fmt.Errorf("advance HEAD: %w", err)
	}
	return id, nil
}
