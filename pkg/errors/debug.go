package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the unwrap chain plus
// whatever Postgres reported, from either pgx or lib/pq.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error_code": string(PublicView(err).Code)}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields["error_chain"] = chain

	var pg struct{ code, constraint, table, column, detail, message string }
	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		pg.code, pg.constraint, pg.table = pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName
		pg.column, pg.detail, pg.message = pgxErr.ColumnName, pgxErr.Detail, pgxErr.Message
	case errors.As(err, &pqErr):
		pg.code, pg.constraint, pg.table = string(pqErr.Code), pqErr.Constraint, pqErr.Table
		pg.column, pg.detail, pg.message = pqErr.Column, pqErr.Detail, pqErr.Message
	default:
		return fields
	}
	for key, value := range map[string]string{
		"pg_code":       pg.code,
		"pg_constraint": pg.constraint,
		"pg_table":      pg.table,
		"pg_column":     pg.column,
		"pg_detail":     pg.detail,
		"pg_message":    pg.message,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
