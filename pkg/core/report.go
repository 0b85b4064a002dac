package core

import (
	"errors"
	"fmt"
)

// Report summarizes a load pass.
type Report struct {
	Groups    int // groups discovered in the live graph
	WithEntry int // groups that had a stored entry
	Loaded    int // groups whose entry was read and decoded
	Applied   int // records written back onto their fields
	Skipped   int // records reported and skipped
	Errors    []error
}

// OK reports whether every group with a stored entry was loaded.
// Groups without an entry do not count against it, so an empty store is OK.
func (r Report) OK() bool {
	return r.Loaded == r.WithEntry
}

// Failed returns the number of groups whose entry could not be read or decoded.
func (r Report) Failed() int {
	return r.WithEntry - r.Loaded
}

// Err joins every reported error, or returns nil.
func (r Report) Err() error {
	return errors.Join(r.Errors...)
}

func (r Report) String() string {
	return fmt.Sprintf("groups=%d stored=%d loaded=%d failed=%d applied=%d skipped=%d",
		r.Groups, r.WithEntry, r.Loaded, r.Failed(), r.Applied, r.Skipped)
}
