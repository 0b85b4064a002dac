package core

import "context"

// Store defines the contract for the durable side of the engine: one entry per group.
// Adhering to this interface keeps the engine independent of the storage mechanism.
type Store interface {
	// Save replaces the entry for group with records. Readers never observe a
	// partially written entry.
	Save(ctx context.Context, group string, records []Record) error

	// Load returns the records stored for group.
	// It returns ErrNotFound when the group has no entry yet.
	Load(ctx context.Context, group string) ([]Record, error)

	// List returns the groups that have an entry, optionally filtered by a glob pattern.
	List(ctx context.Context, pattern string) ([]string, error)

	// Delete removes every entry whose group matches pattern and returns the removed groups.
	Delete(ctx context.Context, pattern string) ([]string, error)

	// Initialize ensures the underlying storage is ready (e.g. create directories).
	Initialize(ctx context.Context) error
}

// GroupNamer is implemented by stores that map several spellings of a group to the
// same entry. Group returns the canonical name, the one List reports.
type GroupNamer interface {
	Group(name string) (string, error)
}

// Watchable defines an interface for stores that can report changes made by others.
type Watchable interface {
	// Watch emits an event for every group entry created, modified or deleted.
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
