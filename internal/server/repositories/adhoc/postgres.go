package adhoc

import (
	"context"
	"fmt"
	"regexp"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
)

// identifier matches a bare or schema-qualified SQL identifier. Anything else
// is rejected before query construction.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) RunQuery(ctx context.Context, table, column, condition string) ([]map[string]any, error) {
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name", common.ErrorValidation)
	}
	if !identifier.MatchString(column) {
		return nil, fmt.Errorf("%w: invalid column name", common.ErrorValidation)
	}

	var (
		rowsQuery string
		args      []any
	)
	if condition == "none" {
		rowsQuery = fmt.Sprintf(`SELECT * FROM %s`, table)
	} else {
		rowsQuery = fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1`, table, column)
		args = append(args, condition)
	}

	rows, err := r.db.QueryContext(ctx, rowsQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, name := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			if v == nil {
				v = "null"
			}
			row[name] = v
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
