// Package validator turns untyped JSON event records into typed rows
// matching the declared schema, or a precise rejection reason.
package validator

import (
	"github.com/attolytics/attolytics/internal/schema"
)

// TableDesignator is the event field naming the target table.
const TableDesignator = "_t"

// RawEvent is one event as received on the wire: field name to decoded
// JSON value. Decode request bodies with UseNumber so numeric fields
// arrive as json.Number.
type RawEvent map[string]any

// TypedRow is a fully validated event. Values holds one entry per
// declared column of Table, in declared column order; absent nullable
// columns hold nil and bind as NULL.
type TypedRow struct {
	Table  *schema.Table
	Values []any
}

// Validate checks one raw event against the schema on behalf of a
// tenant. It is pure and deterministic: no I/O, no mutation, identical
// inputs yield identical results. Each check short-circuits with its
// own error kind, in this order: designator presence, table existence,
// tenant permission, unknown fields, required columns, type coercion.
func Validate(tenant *schema.Tenant, event RawEvent, s *schema.Schema) (*TypedRow, error) {
	designator, ok := event[TableDesignator]
	if !ok {
		return nil, &Error{Kind: KindMissingTableDesignator}
	}
	tableName, ok := designator.(string)
	if !ok {
		return nil, &Error{Kind: KindMissingTableDesignator}
	}

	table, ok := s.Table(tableName)
	if !ok {
		return nil, &Error{Kind: KindUnknownTable, Table: tableName}
	}

	// Permission is checked before any column-level work.
	if !tenant.CanWrite(tableName) {
		return nil, &Error{Kind: KindTableNotPermitted, Table: tableName}
	}

	// Unknown fields reject the event rather than being dropped.
	for name := range event {
		if name == TableDesignator {
			continue
		}
		if _, ok := table.ColumnIndex(name); !ok {
			return nil, &Error{Kind: KindUnknownColumn, Table: tableName, Column: name}
		}
	}

	values := make([]any, len(table.Columns))
	for i, col := range table.Columns {
		raw, present := event[col.Name]
		if !present || raw == nil {
			// Explicit JSON null counts as absent.
			if col.Required {
				return nil, &Error{Kind: KindMissingRequiredColumn, Table: tableName, Column: col.Name}
			}
			values[i] = nil
			continue
		}
		typed, err := col.Type.Coerce(raw)
		if err != nil {
			return nil, &Error{
				Kind:     KindTypeMismatch,
				Table:    tableName,
				Column:   col.Name,
				Expected: col.Type,
				Actual:   schema.JSONShape(raw),
				Detail:   err.Error(),
			}
		}
		values[i] = typed
	}

	return &TypedRow{Table: table, Values: values}, nil
}
