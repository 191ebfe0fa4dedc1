// Package index implements the in-memory key directory: a mapping from key
// to the LogPointer of its latest SET frame. Callers are responsible for
// synchronizing access; Index itself applies no locking so it composes
// with whatever lock order its owner enforces (see internal/engine).
package index

// LogPointer identifies a frame in the log: its starting offset and its
// total on-disk size (length prefix plus body), the latter used for
// garbage accounting.
type LogPointer struct {
	Offset int64
	Size   int64
}

// Index is the in-memory key-to-LogPointer map. Keys are unique; absence of
// a key means it has no mapping. No ordering is required or provided.
type Index struct {
	entries map[string]LogPointer
}

// New returns an empty Index.
func New() *Index {
	return &Index{entries: make(map[string]LogPointer)}
}

// Get returns the LogPointer for key, if any.
func (idx *Index) Get(key string) (LogPointer, bool) {
	ptr, ok := idx.entries[key]
	return ptr, ok
}

// Insert maps key to ptr, returning the previous pointer if key was already
// present.
func (idx *Index) Insert(key string, ptr LogPointer) (LogPointer, bool) {
	prev, ok := idx.entries[key]
	idx.entries[key] = ptr
	return prev, ok
}

// Remove deletes key from the index, returning its previous pointer if it
// was present.
func (idx *Index) Remove(key string) (LogPointer, bool) {
	prev, ok := idx.entries[key]
	if ok {
		delete(idx.entries, key)
	}
	return prev, ok
}

// Len returns the number of keys currently indexed.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Each calls fn for every (key, LogPointer) pair. Iteration stops early if
// fn returns false. Order is unspecified.
func (idx *Index) Each(fn func(key string, ptr LogPointer) bool) {
	for k, v := range idx.entries {
		if !fn(k, v) {
			return
		}
	}
}
