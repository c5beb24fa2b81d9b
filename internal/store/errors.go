package store

import (
	"errors"
	"fmt"
)

// Code categorizes store errors.
type Code string

const (
	// CodeStorageUnavailable means the engine could not be opened or upgraded.
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"

	// CodeDuplicateKey means a create-only insert or unique index collided.
	CodeDuplicateKey Code = "DUPLICATE_KEY"

	// CodeRecordNotFound means an operation required a record that is absent.
	CodeRecordNotFound Code = "RECORD_NOT_FOUND"

	// CodeUnknownCollection means the collection or index is not in the schema.
	CodeUnknownCollection Code = "UNKNOWN_COLLECTION"

	// CodeInvalidRecord means the record is not a JSON object or has a bad key.
	CodeInvalidRecord Code = "INVALID_RECORD"
)

// Sentinels for errors.Is matching. *Error values match the sentinel of their Code.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrRecordNotFound     = errors.New("record not found")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrInvalidRecord      = errors.New("invalid record")
)

var sentinels = map[Code]error{
	CodeStorageUnavailable: ErrStorageUnavailable,
	CodeDuplicateKey:       ErrDuplicateKey,
	CodeRecordNotFound:     ErrRecordNotFound,
	CodeUnknownCollection:  ErrUnknownCollection,
	CodeInvalidRecord:      ErrInvalidRecord,
}

// Error is a store failure with structured context.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op is the store operation, e.g. "add" or "open".
	Op string

	// Collection is the affected collection, if any.
	Collection string

	// Key is the affected primary key, if any.
	Key Key

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Code)
	if e.Collection != "" {
		msg += fmt.Sprintf(" (collection=%s", e.Collection)
		if e.Key != nil {
			msg += fmt.Sprintf(", key=%v", e.Key)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

func newError(code Code, op, collection string, key Key, err error) *Error {
	return &Error{Code: code, Op: op, Collection: collection, Key: key, Err: err}
}

// IsDuplicateKey reports whether err is a duplicate key failure.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsStorageUnavailable reports whether err means the engine could not be opened.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
