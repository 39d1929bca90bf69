package store

import "errors"

// ErrNotFound reports that a document has neither checkpoint nor update rows.
// This is the expected "document does not exist yet" condition, not a storage
// failure; callers should branch on it with errors.Is.
var ErrNotFound = errors.New("qstore: document not found")

// ErrNotStarted reports an operation invoked before Start. This is a
// programming error in the caller and is never retried internally.
var ErrNotStarted = errors.New("qstore: store not started")
