package model

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces transaction ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable transaction ids of the form
// "TRX-<uuidv7>".
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new id. Panics if the UUID source fails.
func (UUIDv7Generator) Generate() string {
	return "TRX-" + uuid.Must(uuid.NewV7()).String()
}

// ReceiptNumber formats a transaction counter as a zero-padded receipt number.
func ReceiptNumber(counter int) string {
	return fmt.Sprintf("%03d", counter)
}
