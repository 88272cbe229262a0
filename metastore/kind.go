package metastore

import (
	"fmt"
	"time"
)

// Kind describes one entity collection: where it lives in the object store,
// how it is encoded, what it starts with, and which fields the server owns.
type Kind[T any] struct {
	// Name is the collection name, used as the key prefix ("blog" ->
	// "blog/metadata.json") and accepted as an envelope name on read.
	Name string

	// Envelope wraps the persisted array as {"<Envelope>": [...]}. Empty
	// means the collection is persisted as a bare array.
	Envelope string

	// Defaults returns a fresh copy of the seed dataset.
	Defaults func() []T

	// IDOf returns the canonical id of a record.
	IDOf func(T) string

	// Prepare sets server-owned fields on a record being added. existing is
	// the collection before the append.
	Prepare func(v *T, id string, now time.Time, existing []T)

	// Preserve restores immutable fields of original onto an updated record.
	Preserve func(updated *T, original T)

	// Immutable lists the JSON keys an update patch may not change. They are
	// dropped from patches before merging, whatever their value type.
	Immutable []string
}

// Key returns the fixed object-store key of the collection.
func (k Kind[T]) Key() string {
	return k.Name + "/metadata.json"
}

func (k Kind[T]) defaults() []T {
	if k.Defaults == nil {
		return []T{}
	}
	return k.Defaults()
}

func (k Kind[T]) validate() error {
	if k.Name == "" {
		return fmt.Errorf("metastore: kind name is required")
	}
	if k.IDOf == nil || k.Prepare == nil || k.Preserve == nil {
		return fmt.Errorf("metastore: kind %q is missing IDOf, Prepare or Preserve", k.Name)
	}
	return nil
}
