// Package crdt defines the document interface the store replays updates
// into, plus the automerge-backed implementation used by default.
package crdt

import (
	"fmt"

	"github.com/automerge/automerge-go"
)

// Document is the surface the store needs from a CRDT engine.
//
// ApplyUpdate merges one binary update into the document and fails on
// malformed input. Snapshot returns a single update representing all state
// since the document's creation, suitable for replaying into a fresh
// Document.
type Document interface {
	ApplyUpdate(update []byte) error
	Snapshot() ([]byte, error)
}

// Factory produces a fresh, empty Document. The store uses it to build the
// in-memory replicas that squash and checkpoint replays run against.
type Factory func() Document

// Automerge adapts an automerge document to the Document interface.
type Automerge struct {
	doc *automerge.Doc
}

// NewAutomerge returns an empty automerge-backed document.
func NewAutomerge() *Automerge {
	return &Automerge{doc: automerge.New()}
}

// NewDocument is the Factory for automerge documents.
func NewDocument() Document {
	return NewAutomerge()
}

func (a *Automerge) ApplyUpdate(update []byte) error {
	if err := a.doc.LoadIncremental(update); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}
	return nil
}

func (a *Automerge) Snapshot() ([]byte, error) {
	return a.doc.Save(), nil
}

// Doc exposes the underlying automerge document for callers that need to
// read or mutate document contents directly.
func (a *Automerge) Doc() *automerge.Doc {
	return a.doc
}
