package repository

import "errors"

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrInvalidTable is returned when attempting to clear a table that is not whitelisted.
// This prevents SQL injection attacks.
var ErrInvalidTable = errors.New("invalid table name")

// ErrFieldsLocked is returned when replacing the fields of an event that
// already has check-ins recorded against them.
var ErrFieldsLocked = errors.New("event fields are locked")

// ErrDuplicateID is returned when inserting a record whose id is taken
var ErrDuplicateID = errors.New("duplicate id")
