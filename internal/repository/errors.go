// Package repository implements the backing store collaborator and the
// reservation accessor on top of it. The sentinel error defined here lets
// higher layers recognize a transient store failure without depending on the
// concrete driver: callers should treat it as "state unknown, retry later"
// rather than crash.
package repository

import "errors"

// ErrStoreUnavailable wraps any failure to reach or use the backing tabular
// service. Handlers translate it into a degraded response (empty set plus a
// warning) on reads and a retryable error on writes.
var ErrStoreUnavailable = errors.New("backing store unavailable")
