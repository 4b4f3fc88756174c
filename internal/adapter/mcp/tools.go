package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

const serverName = "sheetmatch"

const (
	descListSchemas = "List the schemas of the loaded catalogue with their required columns, in priority order. " +
		"Earlier schemas win ties when a worksheet matches more than one."

	descMatchColumns = "Resolve a worksheet header against the catalogue. Placeholder headers (\"Unnamed: n\") and " +
		"the numeric range labels that follow them are dropped first. Returns the match kind " +
		"(exact, extended, partial, none), the winning schema, the share of its required columns present " +
		"and the number of additional columns."

	descMatchColumnsParam = "Column headers of the worksheet, in sheet order"

	descSheetNameParam = "Worksheet name (optional). Sheets configured as out of scope are never matched."

	descCategorizeFiles = "Profile spreadsheet workbooks on the server and categorize every worksheet against the catalogue. " +
		"Returns the categorization report: exact, extended and partial matches grouped by schema, " +
		"unmatched sheets grouped by file name, out-of-scope sheets grouped by file path, and unreadable sheets."

	descCategorizeFilesParam = "Paths of .xlsx/.xls/.csv files readable by the server"

	descQueryRecords = "Run a read-only SQL query over ingested records in PostgreSQL and return rows as a JSON array. " +
		"Every record carries source_filepath, source_sheetname and created_time columns. " +
		"A server-side row limit and query timeout are enforced."

	descQueryParam = "SQL query to execute (a single SELECT statement)"
)

// Tools holds what the tool handlers work with. Query may be nil, in which
// case query_records is not registered.
type Tools struct {
	Catalogue  *domain.Catalogue
	OutOfScope domain.SheetSet
	Categorize *service.CategorizeService
	Query      *service.QueryService
}

// schemaInfo is one catalogue entry as returned by list_schemas.
type schemaInfo struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// matchResult is the outcome of match_columns.
type matchResult struct {
	Kind            string   `json:"kind"`
	Schema          string   `json:"schema,omitempty"`
	Ratio           float64  `json:"match_ratio"`
	Additional      int      `json:"additional_columns"`
	OutOfScope      bool     `json:"out_of_scope"`
	FilteredColumns []string `json:"filtered_columns"`
}

func RegisterTools(s *server.MCPServer, tools Tools, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("list_schemas",
			mcp.WithDescription(descListSchemas),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		listSchemasHandler(tools.Catalogue),
	)

	s.AddTool(
		mcp.NewTool("match_columns",
			mcp.WithDescription(descMatchColumns),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithArray("columns",
				mcp.Required(),
				mcp.Description(descMatchColumnsParam),
				mcp.WithStringItems(),
			),
			mcp.WithString("sheet_name",
				mcp.Description(descSheetNameParam),
			),
		),
		matchColumnsHandler(tools.Catalogue, tools.OutOfScope),
	)

	if tools.Categorize != nil {
		s.AddTool(
			mcp.NewTool("categorize_files",
				mcp.WithDescription(descCategorizeFiles),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithArray("paths",
					mcp.Required(),
					mcp.Description(descCategorizeFilesParam),
					mcp.WithStringItems(),
				),
			),
			categorizeFilesHandler(tools.Categorize, tools.Catalogue, logger),
		)
	}

	if tools.Query != nil {
		s.AddTool(
			mcp.NewTool("query_records",
				mcp.WithDescription(descQueryRecords),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("sql",
					mcp.Required(),
					mcp.Description(descQueryParam),
				),
			),
			queryRecordsHandler(tools.Query, logger),
		)
	}
}

func listSchemasHandler(cat *domain.Catalogue) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		schemas := cat.Schemas()
		out := make([]schemaInfo, 0, len(schemas))
		for _, s := range schemas {
			out = append(out, schemaInfo{Name: s.Name, Columns: s.Columns})
		}
		return jsonResult(out)
	}
}

func matchColumnsHandler(cat *domain.Catalogue, outOfScope domain.SheetSet) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		columns, err := request.RequireStringSlice("columns")
		if err != nil || len(columns) == 0 {
			return mcp.NewToolResultError("columns is required"), nil
		}
		sheetName := request.GetString("sheet_name", "")

		res := domain.Resolve(domain.Worksheet{SheetName: sheetName, Columns: columns}, cat, outOfScope)
		return jsonResult(matchResult{
			Kind:            res.Verdict.Kind.String(),
			Schema:          res.Verdict.Schema,
			Ratio:           res.Verdict.Ratio,
			Additional:      res.Verdict.Additional,
			OutOfScope:      res.OutOfScope,
			FilteredColumns: domain.FilterColumns(columns),
		})
	}
}

func categorizeFilesHandler(svc *service.CategorizeService, cat *domain.Catalogue, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths, err := request.RequireStringSlice("paths")
		if err != nil || len(paths) == 0 {
			return mcp.NewToolResultError("paths is required"), nil
		}

		ctx = service.WithToolName(ctx, "categorize_files")
		report, err := svc.Categorize(ctx, cat, paths)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "categorize files")), nil
		}
		return jsonResult(report)
	}
}

func queryRecordsHandler(query *service.QueryService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql := request.GetString("sql", "")
		if sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithToolName(ctx, "query_records")
		results, err := query.Execute(ctx, sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "query")), nil
		}
		return jsonResult(results)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// sanitizeError turns err into a message safe to hand back to the client.
// Validation failures are returned as-is; anything else is logged and
// replaced by a generic message.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrNotAllowed),
		errors.Is(err, domain.ErrMultiStatement),
		errors.Is(err, domain.ErrParseFailed),
		errors.Is(err, domain.ErrSchemaNotFound):
		return err.Error()
	case isTimeout(err):
		return op + " timed out"
	}

	logger.Error("tool failed", slog.String("operation", op), slog.String("error", err.Error()))
	return fmt.Sprintf("internal error during %s: check server logs", op)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	// 57014: query_canceled, raised when statement_timeout fires.
	return errors.As(err, &pgErr) && pgErr.Code == "57014"
}
