package backend

import (
	"encoding/base64"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Namespace prefixes every key this application owns. Keys outside the
// namespace are considered expendable when storage runs out of room.
const Namespace = "menuplanner."

// FileStore is a persistent key-value adapter backed by a directory of
// files, one per key. Errors never escape the adapter: reads fall back to
// the empty string and writes are best-effort.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	// Keys may contain characters unfit for filenames.
	encoded := base64.URLEncoding.EncodeToString([]byte(key))
	return filepath.Join(s.dir, encoded)
}

// Get returns the stored value, or "" when the key is absent or unreadable.
func (s *FileStore) Get(key string) string {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return ""
	}
	return string(data)
}

// Set writes the value. On failure it purges keys outside the namespace and
// retries once; a second failure is logged and swallowed.
func (s *FileStore) Set(key, value string) {
	if err := os.WriteFile(s.path(key), []byte(value), 0644); err != nil {
		log.Printf("filestore: write failed for %q, purging foreign keys: %v", key, err)
		s.purgeForeignKeys()
		if err := os.WriteFile(s.path(key), []byte(value), 0644); err != nil {
			log.Printf("filestore: write failed again for %q, giving up: %v", key, err)
		}
	}
}

// Remove deletes the key. Missing keys are not an error.
func (s *FileStore) Remove(key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		log.Printf("filestore: remove failed for %q: %v", key, err)
	}
}

// purgeForeignKeys deletes every stored key that does not carry the
// application namespace.
func (s *FileStore) purgeForeignKeys() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		raw, err := base64.URLEncoding.DecodeString(entry.Name())
		if err != nil {
			// Not one of ours; reclaim it.
			_ = os.Remove(filepath.Join(s.dir, entry.Name()))
			continue
		}
		if !strings.HasPrefix(string(raw), Namespace) {
			_ = os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
}
