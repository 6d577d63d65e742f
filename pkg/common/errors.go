package common

import (
	"fmt"
	"strings"
)

// InvalidStateError is returned when a lifecycle operation is called on a
// transaction whose current status doesn't permit it, e.g. commit on an
// already rolled back transaction. Always a caller bug, never retried.
type InvalidStateError struct {
	Message string
}

func (is InvalidStateError) Error() string {
	return is.Message
}

// NewInvalidStateError creates a new instance of InvalidStateError with the given message.
func NewInvalidStateError(message string) InvalidStateError {
	return InvalidStateError{
		Message: message,
	}
}

// NotFoundError is returned when an entity key has no visible version under
// the caller's snapshot.
type NotFoundError struct {
	Key     string
	Message string
}

func (nf NotFoundError) Error() string {
	return nf.Message
}

// NewNotFoundError creates a new instance of NotFoundError for the given entity key.
func NewNotFoundError(key string) NotFoundError {
	return NotFoundError{
		Key:     key,
		Message: fmt.Sprintf("no visible version for entity %s", key),
	}
}

// CollisionError is returned when a write requires exclusivity on an entity
// key but a pending version of it already exists.
type CollisionError struct {
	Key     string
	Message string
}

func (ce CollisionError) Error() string {
	return ce.Message
}

// NewCollisionError creates a new instance of CollisionError for the given entity key.
func NewCollisionError(key string) CollisionError {
	return CollisionError{
		Key:     key,
		Message: fmt.Sprintf("pending version already exists for entity %s", key),
	}
}

// ConflictError is returned when commit validation finds that another
// transaction committed a competing write for one or more keys in the write
// set after this transaction's snapshot was taken. The losing transaction is
// fully rolled back as a side effect.
type ConflictError struct {
	Keys    []string
	Message string
}

func (ce ConflictError) Error() string {
	return ce.Message
}

// NewConflictError creates a new instance of ConflictError naming the colliding entity keys.
func NewConflictError(keys []string) ConflictError {
	return ConflictError{
		Keys:    keys,
		Message: fmt.Sprintf("write-write conflict on entities [%s]", strings.Join(keys, ", ")),
	}
}

// DuplicateEdgeError is returned when creating an edge would violate the
// uniqueness of the directed (source, target, edge type) triple within a
// single snapshot.
type DuplicateEdgeError struct {
	Source   string
	Target   string
	EdgeType string
	Message  string
}

func (de DuplicateEdgeError) Error() string {
	return de.Message
}

// NewDuplicateEdgeError creates a new instance of DuplicateEdgeError for the given triple.
func NewDuplicateEdgeError(source, target, edgeType string) DuplicateEdgeError {
	return DuplicateEdgeError{
		Source:   source,
		Target:   target,
		EdgeType: edgeType,
		Message:  fmt.Sprintf("edge %s -> %s of type %q already exists", source, target, edgeType),
	}
}
