// Package adhoc implements the debugging query facility: a constrained
// SELECT * over a named table, optionally filtered on one column. It is not
// part of the consistency core and must never be exposed without the
// function-key gate.
package adhoc

import "context"

type Repository interface {
	// RunQuery returns all rows of table, filtered by column = condition
	// unless condition is "none". Table and column names are validated as
	// SQL identifiers before being interpolated; the condition value is
	// always bound as a parameter.
	RunQuery(ctx context.Context, table, column, condition string) ([]map[string]any, error)
}
