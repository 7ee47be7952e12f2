package validator

import (
	"fmt"

	"github.com/attolytics/attolytics/internal/schema"
)

// Kind distinguishes the validation failure classes. Each step of the
// validation algorithm fails with exactly one kind so callers and audit
// logs can tell an authorization failure apart from a schema mismatch.
type Kind string

const (
	KindMissingTableDesignator Kind = "missing_table_designator"
	KindUnknownTable           Kind = "unknown_table"
	KindTableNotPermitted      Kind = "table_not_permitted"
	KindUnknownColumn          Kind = "unknown_column"
	KindMissingRequiredColumn  Kind = "missing_required_column"
	KindTypeMismatch           Kind = "type_mismatch"
)

// Error is a single event's validation failure.
type Error struct {
	Kind   Kind
	Table  string
	Column string

	// Expected and Actual are set for type mismatches.
	Expected schema.ColumnType
	Actual   string

	// Detail carries coercion specifics (range overflow, unparseable
	// timestamp) beyond the shape mismatch itself.
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindMissingTableDesignator:
		return fmt.Sprintf("event is missing the %q table designator field", TableDesignator)
	case KindUnknownTable:
		return fmt.Sprintf("unknown table %q", e.Table)
	case KindTableNotPermitted:
		return fmt.Sprintf("writes to table %q are not permitted for this tenant", e.Table)
	case KindUnknownColumn:
		return fmt.Sprintf("table %q has no column %q", e.Table, e.Column)
	case KindMissingRequiredColumn:
		return fmt.Sprintf("required column %q of table %q was omitted", e.Column, e.Table)
	case KindTypeMismatch:
		if e.Detail != "" {
			return fmt.Sprintf("column %q of table %q: %s", e.Column, e.Table, e.Detail)
		}
		return fmt.Sprintf("column %q of table %q expects %s, got %s", e.Column, e.Table, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("validation failed (%s)", e.Kind)
	}
}
