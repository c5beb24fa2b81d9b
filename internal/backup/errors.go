package backup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidImportFormat means the import document does not parse as
	// JSON. Nothing was changed.
	ErrInvalidImportFormat = errors.New("invalid import format")

	// ErrImportSchemaMismatch means the document is JSON but its collections
	// do not hold export records. Nothing was changed.
	ErrImportSchemaMismatch = errors.New("import document does not match the export layout")

	// ErrPartialImport matches *PartialImportError.
	ErrPartialImport = errors.New("partial import")
)

// PartialImportError reports an import that failed after it began clearing
// collections. The database holds every collection in Cleared emptied, the
// ones in Restored repopulated, and Failed holding the first Record-1
// records of its array.
type PartialImportError struct {
	Cleared  []string
	Restored []string
	Failed   string
	Record   int
	Err      error
}

func (e *PartialImportError) Error() string {
	where := "while clearing"
	if e.Failed != "" {
		where = fmt.Sprintf("at %s record %d", e.Failed, e.Record)
	}
	return fmt.Sprintf("partial import %s (cleared: %s; restored: %s): %v",
		where, strings.Join(e.Cleared, ","), strings.Join(e.Restored, ","), e.Err)
}

func (e *PartialImportError) Unwrap() error {
	return e.Err
}

// Is matches ErrPartialImport.
func (e *PartialImportError) Is(target error) bool {
	return target == ErrPartialImport
}
