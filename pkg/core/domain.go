// Package core holds the domain types and ports shared by the registry, the engine and
// the storage adapters.
package core

// Record is one persisted field: where it goes, who owns it and its encoded value.
//
// Records are not unique. Several may target the same owner field; on load they are
// applied in order and the last one wins.
type Record struct {
	Group     string `json:"group" yaml:"group"`
	OwnerID   string `json:"owner_id,omitempty" yaml:"owner_id,omitempty"`
	Owner     string `json:"owner" yaml:"owner"`
	Component string `json:"component" yaml:"component"`
	Field     string `json:"field" yaml:"field"`
	Payload   string `json:"payload" yaml:"payload"`
}

// EventType represents the type of change to a stored group.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a stored group.
type Event struct {
	Type      EventType
	Group     string
	Timestamp int64 // Unix timestamp
}

// String implements fmt.Stringer.
func (e Event) String() string {
	return string(e.Type) + " " + e.Group
}
