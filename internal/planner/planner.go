// Package planner groups a request's validated rows by target table and
// builds one parameterized multi-row INSERT per table, so a batch of N
// events against one table costs one round trip instead of N.
package planner

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/attolytics/attolytics/internal/validator"
)

// Row pairs a validated row with its event's position in the request,
// kept so execution failures can be attributed back to the submission.
type Row struct {
	Row      *validator.TypedRow
	Position int
}

// Plan is one table's insert: a statement template with one placeholder
// set per row and the flattened parameter list in column order.
type Plan struct {
	Table     string
	SQL       string
	Args      []any
	Positions []int
}

// Rows returns the number of rows the plan inserts.
func (p *Plan) Rows() int {
	return len(p.Positions)
}

// Build groups rows by table, preserving each row's relative order
// within its table's group, and returns one plan per distinct table in
// first-appearance order. Tables with zero rows are simply absent.
func Build(rows []Row) []*Plan {
	var order []string
	groups := make(map[string][]Row)
	for _, r := range rows {
		name := r.Row.Table.Name
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], r)
	}

	plans := make([]*Plan, 0, len(order))
	for _, name := range order {
		plans = append(plans, buildPlan(name, groups[name]))
	}
	return plans
}

func buildPlan(name string, rows []Row) *Plan {
	table := rows[0].Row.Table
	width := len(table.Columns)

	cols := make([]string, width)
	for i, col := range table.Columns {
		cols[i] = pgx.Identifier{col.Name}.Sanitize()
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(pgx.Identifier{name}.Sanitize())
	sb.WriteString(" (")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*width)
	positions := make([]int, 0, len(rows))
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range width {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*width+j+1)
		}
		sb.WriteByte(')')
		args = append(args, r.Row.Values...)
		positions = append(positions, r.Position)
	}

	return &Plan{
		Table:     name,
		SQL:       sb.String(),
		Args:      args,
		Positions: positions,
	}
}
