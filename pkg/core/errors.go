package core

import "errors"

// Storage errors.
var (
	ErrReadOnly     = errors.New("store is in read-only mode")
	ErrNotFound     = errors.New("group not found")
	ErrInvalidGroup = errors.New("invalid group name")
	ErrCorruptGroup = errors.New("group file is corrupt")
)

// Rehydration errors. They are reported per record and never abort a load.
var (
	ErrOwnerNotFound     = errors.New("owner not found")
	ErrAmbiguousOwner    = errors.New("owner name is not unique")
	ErrComponentNotFound = errors.New("component not found")
	ErrFieldNotFound     = errors.New("field not found")
	ErrTypeMismatch      = errors.New("payload does not match field type")
	ErrNotConstructible  = errors.New("field type cannot be constructed")
	ErrNilReference      = errors.New("referenced instance is nil")
)
