// Command inspector analyzes one tabular file and prints or writes the
// data-quality report.
//
//	inspector -file data.xlsx [-sheet S] [-checks null_check,duplicate_check]
//	          [-format text|json|csv|xlsx|html|pdf] [-out path] [-max-rows N]
//	          [-parallel] [-fail-on-issues]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"etlinspector/internal/config"
	"etlinspector/internal/detector"
	"etlinspector/internal/exporter"
	"etlinspector/internal/infrastructure"
	"etlinspector/internal/ingest"
	"etlinspector/internal/services"
	"etlinspector/internal/validation"
	"etlinspector/pkg/contracts"
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitIssues = 3
)

type options struct {
	file         string
	sheet        string
	checks       []string
	format       exporter.Format
	out          string
	maxRows      int
	parallel     bool
	failOnIssues bool
	logLevel     string
	version      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "inspector:", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	if _, err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(stderr, "inspector:", err)
		return exitError
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "inspector:", err)
		return exitError
	}

	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := infrastructure.NewWriterLogger(stderr, level, cfg.Logging.Format)

	analysis, err := newAnalysisService(ctx, cfg, opts, logger)
	if err != nil {
		fmt.Fprintln(stderr, "inspector:", err)
		return exitError
	}

	report, err := analysis.Analyze(ctx, services.AnalyzeRequest{
		Path:     opts.file,
		Sheet:    opts.sheet,
		Checks:   opts.checks,
		Parallel: opts.parallel,
	})
	if err != nil {
		fmt.Fprintln(stderr, "inspector:", err)
		if errors.Is(err, detector.ErrUnknownCheck) {
			return exitUsage
		}
		return exitError
	}

	exp := newExporter(cfg, opts.format)
	if opts.out != "" {
		err = exp.ExportFile(ctx, opts.out, opts.format, report)
	} else {
		err = exp.Export(ctx, stdout, opts.format, report)
	}
	if err != nil {
		fmt.Fprintln(stderr, "inspector: export:", err)
		return exitError
	}
	if opts.out != "" {
		logger.Info("Report written",
			slog.String("path", opts.out),
			slog.String("format", string(opts.format)),
			slog.Int("issues", len(report.Issues)))
	}

	if opts.failOnIssues && !report.Clean() {
		return exitIssues
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("inspector", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var checks, format string
	fs.StringVar(&opts.file, "file", "", "file to analyze (.csv, .xlsx or sheets://<id>/<range>)")
	fs.StringVar(&opts.sheet, "sheet", "", "worksheet to read (default: first sheet)")
	fs.StringVar(&checks, "checks", "", "comma-separated checks to run (default: all)")
	fs.StringVar(&format, "format", string(exporter.FormatText), "output format: "+strings.Join(exporter.FormatNames(), "|"))
	fs.StringVar(&opts.out, "out", "", "write the report to this file instead of stdout")
	fs.IntVar(&opts.maxRows, "max-rows", 0, "read at most this many data rows (0: all)")
	fs.BoolVar(&opts.parallel, "parallel", false, "run checks concurrently")
	fs.BoolVar(&opts.failOnIssues, "fail-on-issues", false, "exit with status 3 when any issue is found")
	fs.StringVar(&opts.logLevel, "log-level", "", "override the configured log level")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.version {
		return opts, nil
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.file == "" {
		return options{}, errors.New("-file is required")
	}
	if opts.maxRows < 0 {
		return options{}, errors.New("-max-rows must not be negative")
	}

	f, err := exporter.ParseFormat(format)
	if err != nil {
		return options{}, err
	}
	opts.format = f
	if opts.out == "" && (f == exporter.FormatXLSX || f == exporter.FormatPDF) {
		return options{}, fmt.Errorf("-format %s needs -out", f)
	}

	for _, name := range strings.Split(checks, ",") {
		if name = strings.TrimSpace(name); name != "" {
			opts.checks = append(opts.checks, name)
		}
	}
	return opts, nil
}

// newAnalysisService builds an in-memory pipeline: the CLI keeps no
// history and uses neither the cache nor the event bus.
func newAnalysisService(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) (*services.AnalysisService, error) {
	ingestOpts := ingest.Options{MaxRows: cfg.Detection.MaxRows}
	if opts.maxRows > 0 {
		ingestOpts.MaxRows = opts.maxRows
	}
	if cfg.Sheets.CredentialsFile != "" && strings.HasPrefix(opts.file, ingest.SheetsScheme) {
		reader, err := ingest.NewSheetsReader(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			return nil, err
		}
		ingestOpts.Sheets = reader
	}

	return services.NewAnalysisService(services.AnalysisDeps{
		Validator: validation.NewFileValidator(logger, cfg.Server.MaxUploadBytes),
		Store:     services.NewMemoryReportStore(1),
		Logger:    logger,
		Options:   cfg.Detection.Options(),
		Ingest:    ingestOpts,
	}), nil
}

func newExporter(cfg *config.Config, f exporter.Format) *exporter.Exporter {
	if f != exporter.FormatPDF {
		return exporter.New()
	}
	return exporter.New(exporter.WithPDFRenderer(
		exporter.NewChromePDF(cfg.Export.ChromePath, cfg.Export.PDFTimeout)))
}
