package reconcile

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch is matched by every SchemaMismatchError.
var ErrSchemaMismatch = errors.New("schema mismatch")

// SchemaMismatchError reports the field that could not be reconciled with the
// model's feature schema. Row is the 1-based data row for table input and 0
// for single records or header problems.
type SchemaMismatchError struct {
	Feature   string
	Canonical string
	Row       int
	Reason    string
}

func (e *SchemaMismatchError) Error() string {
	name := e.Feature
	if e.Canonical != "" && e.Canonical != e.Feature {
		name = fmt.Sprintf("%s (%s)", e.Canonical, e.Feature)
	}
	if e.Row > 0 {
		return fmt.Sprintf("schema mismatch at row %d, column %s: %s", e.Row, name, e.Reason)
	}
	return fmt.Sprintf("schema mismatch on %s: %s", name, e.Reason)
}

func (e *SchemaMismatchError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

func mismatch(f Field, row int, format string, args ...any) *SchemaMismatchError {
	return &SchemaMismatchError{
		Feature:   f.Expected,
		Canonical: f.Canonical,
		Row:       row,
		Reason:    fmt.Sprintf(format, args...),
	}
}
