package port

import "context"

// QueryValidator validates SQL statements before execution.
type QueryValidator interface {
	Validate(sql string) error
}

// QueryExecutor runs a validated read-only query over ingested records.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) ([]map[string]any, error)
}
