// Package repository keeps the marketplace state as JSON collections in a
// kv.Store. The sentinel errors below let higher layers tell a missing
// record apart from a broken backend.
package repository

import "errors"

// ErrNotFound is returned when a keyed record such as a session does not
// exist or has expired. Handlers translate it into a 401 for sessions.
var ErrNotFound = errors.New("not found")

// ErrCorrupt is returned when a stored collection cannot be decoded. The
// offending key is included in the wrapped message.
var ErrCorrupt = errors.New("corrupt collection")
