package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/guillermoBallester/dqscore/internal/adapter/file"
	"github.com/guillermoBallester/dqscore/internal/core/domain"
	"github.com/guillermoBallester/dqscore/internal/core/service"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "dqscore"

// Tool descriptions
const (
	descAssessFile = "Assess the data quality of a local CSV, Excel (.xlsx), JSON or Parquet file. " +
		"Returns an overall score from 0 to 100 and six dimension scores: completeness (missing cells), " +
		"consistency (mixed types, malformed emails), uniqueness (duplicate rows), validity (infinite numbers, " +
		"negative ages or counts, overlong text), accuracy (extreme outliers) and timeliness (share of year " +
		"values within the last 10 years). A dimension scored null does not apply to the data and is left out " +
		"of the overall score. The response also includes per-column types and missing counts and a short " +
		"preview of the first rows."

	descAssessFilePath = "Path to the file on the server's filesystem"

	descAssessContent = "Assess the data quality of file content passed inline, for clients that cannot share " +
		"a filesystem with the server. Text formats (csv, json) can be sent as-is; binary formats (xlsx, " +
		"parquet) must be base64-encoded with encoding=base64. The response is the same as assess_file."

	descAssessQuery = "Assess the data quality of the result set of a read-only SQL query against the configured " +
		"PostgreSQL database. Only a single SELECT statement is accepted. A server-side row limit and query " +
		"timeout are enforced. The response is the same as assess_file."

	descAssessQuerySQL = "SELECT statement whose result set is assessed"
)

func RegisterTools(s *server.MCPServer, svc *service.AssessmentService, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("assess_file",
			mcp.WithDescription(descAssessFile),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description(descAssessFilePath),
			),
		),
		assessFileHandler(svc, logger),
	)

	s.AddTool(
		mcp.NewTool("assess_content",
			mcp.WithDescription(descAssessContent),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("content",
				mcp.Required(),
				mcp.Description("The file content"),
			),
			mcp.WithString("format",
				mcp.Required(),
				mcp.Description("Format of the content"),
				mcp.Enum(string(file.FormatCSV), string(file.FormatJSON), string(file.FormatXLSX), string(file.FormatParquet)),
			),
			mcp.WithString("encoding",
				mcp.Description("How content is encoded. Defaults to text."),
				mcp.Enum("text", "base64"),
				mcp.DefaultString("text"),
			),
		),
		assessContentHandler(svc, logger),
	)

	if svc.HasSource() {
		s.AddTool(
			mcp.NewTool("assess_query",
				mcp.WithDescription(descAssessQuery),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("sql",
					mcp.Required(),
					mcp.Description(descAssessQuerySQL),
				),
			),
			assessQueryHandler(svc, logger),
		)
	}
}

func assessFileHandler(svc *service.AssessmentService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path := request.GetString("path", "")
		if path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}
		if !file.Allowed(path) {
			return mcp.NewToolResultError(fmt.Sprintf("%v: .%s (upload CSV, Excel, JSON or Parquet files)", domain.ErrUnsupportedFormat, file.Extension(path))), nil
		}

		f, err := os.Open(path)
		if err != nil {
			return mcp.NewToolResultError(openError(path, err)), nil
		}
		defer func() { _ = f.Close() }()

		ctx = service.WithToolName(ctx, "assess_file")
		a, err := svc.AssessFile(ctx, filepath.Base(path), f)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "assessment")), nil
		}
		return assessmentResult(a)
	}
}

func assessContentHandler(svc *service.AssessmentService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content := request.GetString("content", "")
		if content == "" {
			return mcp.NewToolResultError("content is required"), nil
		}
		format := strings.ToLower(request.GetString("format", ""))
		switch file.Format(format) {
		case file.FormatCSV, file.FormatJSON, file.FormatXLSX, file.FormatParquet:
		default:
			return mcp.NewToolResultError("format must be one of csv, json, xlsx, parquet"), nil
		}

		raw := []byte(content)
		switch request.GetString("encoding", "text") {
		case "text":
		case "base64":
			decoded, err := base64.StdEncoding.DecodeString(content)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("content is not valid base64: %v", err)), nil
			}
			raw = decoded
		default:
			return mcp.NewToolResultError("encoding must be text or base64"), nil
		}

		ctx = service.WithToolName(ctx, "assess_content")
		a, err := svc.AssessFile(ctx, "content."+format, bytes.NewReader(raw))
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "assessment")), nil
		}
		return assessmentResult(a)
	}
}

func assessQueryHandler(svc *service.AssessmentService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql := request.GetString("sql", "")
		if sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithToolName(ctx, "assess_query")
		a, err := svc.AssessQuery(ctx, sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "query")), nil
		}
		return assessmentResult(a)
	}
}

func assessmentResult(a *service.Assessment) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(a); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(strings.TrimSuffix(buf.String(), "\n")), nil
}

func openError(path string, err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Sprintf("file not found: %s", path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Sprintf("permission denied: %s", path)
	}
	return fmt.Sprintf("cannot open file: %s", path)
}

// sanitizeError turns err into a message safe to show the client. Errors
// caused by the input pass through; anything else is logged and replaced
// by a generic message.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	if domain.IsInputError(err) {
		return err.Error()
	}

	var pgErr *pgconn.PgError
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &pgErr) && pgErr.Code == "57014") {
		return op + " timed out"
	}
	if pgErr != nil {
		// Syntax, undefined objects, permissions (42xxx) and bad data (22xxx)
		// are the caller's to fix.
		if strings.HasPrefix(pgErr.Code, "42") || strings.HasPrefix(pgErr.Code, "22") {
			return fmt.Sprintf("%s failed: %s", op, pgErr.Message)
		}
	}

	logger.Error(op+" failed", slog.String("error", err.Error()))
	return op + " failed: internal error (check server logs)"
}
