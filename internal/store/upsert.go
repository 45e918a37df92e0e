package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// MaxBatchRows is the upper bound on rows per upsert statement, per the
// store's batching contract.
const MaxBatchRows = 500

// BatchUpsert writes rows in chunks of at most MaxBatchRows, one
// statement per chunk, inside a single transaction for the whole call.
// columns must match the positional order values[i] supplies per row.
// conflictCols names the natural-key columns for the ON CONFLICT clause;
// updateCols names the columns to overwrite on conflict (idempotent
// upsert — re-running with identical inputs is a no-op write).
func (s *Store) BatchUpsert(ctx context.Context, table string, columns []string, conflictCols []string, updateCols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(rows); start += MaxBatchRows {
			end := start + MaxBatchRows
			if end > len(rows) {
				end = len(rows)
			}
			chunk := rows[start:end]

			query, args := s.buildUpsert(table, columns, conflictCols, updateCols, chunk)
			if _, err := tx.ExecContext(ctx, s.Bind(query), args...); err != nil {
				return fmt.Errorf("batch upsert into %s (rows %d-%d): %w", table, start, end, err)
			}
		}
		return nil
	})
}

func (s *Store) buildUpsert(table string, columns, conflictCols, updateCols []string, rows [][]any) (string, []any) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", table, strings.Join(columns, ", "))

	args := make([]any, 0, len(rows)*len(columns))
	argN := 1
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", argN)
			argN++
		}
		sb.WriteString(")")
		args = append(args, row...)
	}

	if len(conflictCols) > 0 {
		fmt.Fprintf(&sb, " ON CONFLICT (%s) DO ", strings.Join(conflictCols, ", "))
		if len(updateCols) == 0 {
			sb.WriteString("NOTHING")
		} else {
			sb.WriteString("UPDATE SET ")
			for i, c := range updateCols {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%s = EXCLUDED.%s", c, c)
			}
		}
	}

	return sb.String(), args
}
