package index

import "github.com/starford/orrery/internal/storage"

// Verify *DB satisfies storage.Store at compile time.
var _ storage.Store = (*DB)(nil)
