package domain

import (
	"errors"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotAllowed     = errors.New("only plain SELECT queries are allowed")
	ErrMultiStatement = errors.New("multiple statements are not allowed")
	ErrParseFailed    = errors.New("failed to parse SQL")
)

// QueryValidator guards ad-hoc queries over ingested records. It uses the
// PostgreSQL parser and admits a single SELECT that neither creates a table
// (SELECT ... INTO) nor takes row locks.
type QueryValidator struct{}

func NewQueryValidator() *QueryValidator {
	return &QueryValidator{}
}

func (v *QueryValidator) Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ErrEmptyQuery
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	if len(tree.Stmts) == 0 || tree.Stmts[0].Stmt == nil {
		return ErrEmptyQuery
	}
	if len(tree.Stmts) > 1 {
		return ErrMultiStatement
	}

	sel, ok := tree.Stmts[0].Stmt.Node.(*pg_query.Node_SelectStmt)
	if !ok {
		return ErrNotAllowed
	}
	if sel.SelectStmt.GetIntoClause() != nil || len(sel.SelectStmt.GetLockingClause()) > 0 {
		return ErrNotAllowed
	}
	return nil
}
