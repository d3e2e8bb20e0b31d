// Package docstore is the document database the schedule core talks to: point
// reads, filtered queries, live subscriptions and per-document writes. Writes to
// different documents are independent; nothing is atomic across documents.
package docstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("document not found")
var ErrClosed = errors.New("document store closed")

// Document is one stored record. Revision grows on every write to the document.
type Document struct {
	Id       string
	Data     map[string]any
	Revision int64
}

// Cancel stops a live subscription. It is safe to call more than once.
type Cancel func()

type Store interface {
	Get(ctx context.Context, collection string, id string) (Document, error)
	Query(ctx context.Context, collection string, filter Filter) ([]Document, error)
	// Subscribe delivers the full matching set once it is known and again every time it changes.
	// onError is called when the subscription breaks; the last delivered snapshot stays valid.
	Subscribe(collection string, filter Filter, onNext func([]Document), onError func(error)) Cancel
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// Merge applies patch to the document, creating it when absent. Keys may be dotted
	// paths ("friendColors.u2") to update a single entry of a nested map.
	Merge(ctx context.Context, collection string, id string, patch map[string]any) error
	Delete(ctx context.Context, collection string, id string) error
}
