package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/guillermoBallester/dqscore/internal/adapter/file"
	"github.com/guillermoBallester/dqscore/internal/adapter/httpapi"
	"github.com/guillermoBallester/dqscore/internal/adapter/mcp"
	"github.com/guillermoBallester/dqscore/internal/config"
	"github.com/guillermoBallester/dqscore/internal/core/service"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dqscore",
		Short: "Score the quality of tabular data",
		Long: `dqscore assesses a table across six dimensions (completeness, consistency,
uniqueness, validity, accuracy and timeliness) and combines them into an
overall score from 0 to 100.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "assess FILE",
			Short: "Assess a CSV, Excel, JSON or Parquet file and print the report",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, transportCLI, func(ctx context.Context, a *app) error {
					return assessFile(ctx, a.svc, args[0], cmd.OutOrStdout())
				})
			},
		},
		&cobra.Command{
			Use:   "query SQL",
			Short: "Assess the result set of a SELECT against DATABASE_URL",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd, transportCLI, func(ctx context.Context, a *app) error {
					ctx = service.WithToolName(ctx, "query")
					res, err := a.svc.AssessQuery(ctx, args[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), res)
				})
			},
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve POST /evaluate, GET /health and MCP over streamable HTTP",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, transportHTTP, serveHTTP)
			},
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve MCP over stdio",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, transportStdio, serveStdio)
			},
		},
	)
	return root
}

const (
	transportCLI   = "cli"
	transportStdio = "stdio"
	transportHTTP  = "http"
)

// withApp loads config from env and flags, wires the app and runs fn until
// it returns or the process is signalled.
func withApp(cmd *cobra.Command, transport string, fn func(context.Context, *app) error) error {
	overrides, err := overridesFromFlags(cmd.Flags())
	if err != nil {
		return err
	}
	overrides.Transport = &transport
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	logger.Info("starting dqscore",
		slog.String("version", version),
		slog.String("command", cmd.Name()),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.Int("preview_rows", cfg.PreviewRows),
		slog.Bool("save_reports", cfg.SaveReports),
		slog.Bool("query_source", cfg.DatabaseURL != ""),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	return fn(ctx, a)
}

func assessFile(ctx context.Context, svc *service.AssessmentService, path string, out io.Writer) error {
	if !file.Allowed(path) {
		return fmt.Errorf("file type not allowed: %s (upload CSV, Excel, JSON or Parquet files)", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	res, err := svc.AssessFile(service.WithToolName(ctx, "assess"), filepath.Base(path), f)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveHTTP(ctx context.Context, a *app) error {
	mcpServer := mcp.NewServer(version, a.svc, a.logger, a.tracer, a.inst)
	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath("/mcp"),
		mcpserver.WithStateLess(true),
	)

	handler := httpapi.NewRouter(httpapi.Config{
		BearerToken:    a.cfg.HTTPBearerToken,
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		AllowedOrigins: a.cfg.HTTPAllowedOrigins,
	}, a.svc, streamable, a.logger, a.inst)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving http",
			slog.String("addr", a.cfg.HTTPAddr),
			slog.Bool("auth", a.cfg.HTTPBearerToken != ""),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func serveStdio(ctx context.Context, a *app) error {
	mcpServer := mcp.NewServer(version, a.svc, a.logger, a.tracer, a.inst)
	stdio := mcpserver.NewStdioServer(mcpServer)

	a.logger.Info("serving MCP over stdio")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}
