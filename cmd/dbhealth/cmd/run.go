package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dbhealth/internal/client/advisory"
	"dbhealth/internal/client/host"
	"dbhealth/internal/client/mysql"
	"dbhealth/internal/config"
	"dbhealth/internal/model"
	"dbhealth/internal/report"
	"dbhealth/internal/report/jsonfile"
	"dbhealth/internal/service"
)

// Command flags
var (
	outputDir    string   // Output directory for reports
	formats      []string // Output formats (json, excel, html)
	dbHost       string   // MySQL host
	dbUser       string   // MySQL user
	dbPassword   string   // MySQL password
	dbPort       int      // MySQL port
	level        int      // Monitoring level
	enableTables bool     // Collect table statistics below level 3
	noAdvisory   bool     // Skip the advisory step
	assumeYes    bool     // Approve every advisory command
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring pass",
	Long: `Run one monitoring pass:
1. Collect host and MySQL counters for the domains of the monitoring level
2. Normalize counters into typed metrics
3. Evaluate thresholds and tuning rules
4. Ask the advisory service for tuning commands (if enabled)
5. Write the JSON report and any secondary formats

Levels:
  1  system, server
  2  + query cache, InnoDB engine, slow queries
  3  + table statistics

Examples:
  # Level 2 run against a local server
  dbhealth run --host 127.0.0.1 -u monitor -p secret

  # Full run with Excel and HTML renderings
  dbhealth run -c config.yaml --level 3 -f json,excel,html

Exit codes: 0 normal, 1 warning or failure, 2 critical.`,
	Run: runMonitoring,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "output formats (json,excel,html), comma separated")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")

	runCmd.Flags().StringVar(&dbHost, "host", "", "MySQL host")
	runCmd.Flags().IntVar(&dbPort, "port", 3306, "MySQL port")
	runCmd.Flags().StringVarP(&dbUser, "user", "u", "", "MySQL user")
	runCmd.Flags().StringVarP(&dbPassword, "password", "p", "", "MySQL password")

	runCmd.Flags().IntVar(&level, "level", 2, "monitoring level (1-3)")
	runCmd.Flags().BoolVar(&enableTables, "enable-tables", false, "collect table statistics below level 3")

	runCmd.Flags().BoolVar(&noAdvisory, "no-advisory", false, "skip the advisory step")
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "approve every advisory command without prompting")
}

// runMonitoring executes one monitoring pass and exits with the status code.
func runMonitoring(cmd *cobra.Command, args []string) {
	printBanner()

	// Step 1: Load configuration
	configPath := GetConfigFile()
	if configPath != "" {
		fmt.Printf("📋 loading config: %s\n", configPath)
	}
	cfg, err := config.LoadWith(configPath, func(c *config.Config) {
		applyFlagOverrides(cmd, c)
	})
	if err != nil {
		tmpLogger := setupLogger("error", "console", time.Local)
		tmpLogger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		fmt.Fprintf(os.Stderr, "❌ failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Step 2: Initialize logger
	// Command line --log-level overrides config file setting
	logLevel := cfg.Logging.Level
	if GetLogLevel() != "info" {
		logLevel = GetLogLevel()
	}
	tz := cfg.Report.Location()
	logger := setupLogger(logLevel, cfg.Logging.Format, tz)
	logger.Debug().
		Str("config_path", configPath).
		Str("log_level", logLevel).
		Int("level", cfg.Monitoring.Level).
		Msg("configuration loaded")

	schemas, err := config.LoadSchemas(cfg.Monitoring.SchemaFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load counter schemas")
		fmt.Fprintf(os.Stderr, "❌ failed to load counter schemas: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 3: Create clients
	mysqlClient, err := mysql.NewClient(&cfg.Database, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create MySQL client")
		fmt.Fprintf(os.Stderr, "❌ failed to create MySQL client: %v\n", err)
		os.Exit(1)
	}
	defer mysqlClient.Close()

	fmt.Printf("🔌 connecting to %s\n", mysqlClient.Address())
	if err := mysqlClient.Ping(ctx); err != nil {
		// The run continues: the database domains are reported unavailable.
		logger.Warn().Err(err).Msg("MySQL server unreachable")
		fmt.Fprintf(os.Stderr, "⚠️  MySQL server unreachable: %v\n", err)
	}

	hostClient := host.NewClient(&cfg.System, logger)

	// Step 4: Build the pipeline
	collector, err := service.NewCollector(mysqlClient, hostClient, cfg.Monitoring.Concurrency, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create collector")
		os.Exit(1)
	}
	normalizer := service.NewNormalizer(schemas)
	evaluator := service.NewEvaluator(&cfg.Thresholds, logger)

	dir := resolveOutputDir(cfg)
	sink := jsonfile.NewSink(dir, cfg.Report.FilenameTemplate, logger)

	opts := []service.InspectorOption{
		service.WithVersion(Version),
		service.WithWriters(secondaryWriters(resolveFormats(cfg), tz, cfg.Report.HTMLTemplate, logger)...),
	}

	if cfg.Advisory.Enabled {
		provider, err := advisory.NewProvider(&cfg.Advisory, &cfg.HTTP.Retry, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("advisory disabled")
		} else {
			opts = append(opts, service.WithAdvisor(
				service.NewAdvisor(provider, logger),
				resolveApprover(cfg, os.Stdin, os.Stdout),
			))
		}
	}

	inspector, err := service.NewInspector(cfg, collector, normalizer, evaluator, sink, logger, opts...)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create inspector")
		os.Exit(1)
	}

	// Step 5: Run
	fmt.Printf("🔍 monitoring level %d\n", cfg.Monitoring.Level)
	result, err := inspector.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("monitoring run failed")
		fmt.Fprintf(os.Stderr, "❌ monitoring run failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(os.Stdout, result)

	if code := exitCode(result.Report.Summary.Status); code > 0 {
		os.Exit(code)
	}
}

// applyFlagOverrides copies explicitly set command line flags into the configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if noAdvisory {
		cfg.Advisory.Enabled = false
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Database.Host = dbHost
	}
	if flags.Changed("port") {
		cfg.Database.Port = dbPort
	}
	if flags.Changed("user") {
		cfg.Database.User = dbUser
	}
	if flags.Changed("password") {
		cfg.Database.Password = dbPassword
	}
	if flags.Changed("level") {
		cfg.Monitoring.Level = level
	}
	if flags.Changed("enable-tables") {
		cfg.Monitoring.EnableTables = enableTables
	}
	if flags.Changed("format") {
		cfg.Report.Formats = formats
	}
}

// secondaryWriters returns the writers of every requested format except the
// primary JSON artifact. Unknown formats are logged and skipped.
func secondaryWriters(requested []string, tz *time.Location, htmlTemplate string, logger zerolog.Logger) []report.ReportWriter {
	registry := report.NewRegistry(tz, htmlTemplate)

	var writers []report.ReportWriter
	seen := make(map[string]bool)
	for _, f := range requested {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "json" || seen[f] {
			continue
		}
		seen[f] = true

		w, err := registry.Get(f)
		if err != nil {
			logger.Error().Err(err).Str("format", f).Msg("unsupported format")
			continue
		}
		writers = append(writers, w)
	}
	return writers
}

// resolveApprover selects how advisory commands are approved.
func resolveApprover(cfg *config.Config, in io.Reader, out io.Writer) service.Approver {
	if assumeYes || cfg.Advisory.AutoApprove {
		return service.AutoApprover{}
	}
	return service.NewConsoleApprover(in, out)
}

// exitCode maps the overall report status to the process exit code.
func exitCode(status model.DomainStatus) int {
	switch status {
	case model.StatusCritical:
		return 2
	case model.StatusWarning:
		return 1
	default:
		return 0
	}
}

// setupLogger creates a zerolog logger with the specified level and format.
// Log timestamps use the report timezone.
func setupLogger(level string, format string, tz *time.Location) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	if tz == nil {
		tz = time.Local
	}
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().In(tz)
	}

	var output io.Writer
	if format == "json" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// printBanner prints the application banner.
func printBanner() {
	fmt.Printf("🩺 dbhealth %s\n", Version)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// printSummary prints the run outcome.
func printSummary(w io.Writer, result *service.RunResult) {
	r := result.Report
	fmt.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(w, "   status:          %s\n", r.Summary.Status)
	for _, d := range r.Domains {
		line := fmt.Sprintf("   %-16s %s", string(d.Domain)+":", d.Status)
		if d.Error != "" {
			line += " (" + d.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   warnings:        %d (critical %d)\n", r.Summary.Findings.Warnings, r.Summary.Findings.Critical)
	fmt.Fprintf(w, "   recommendations: %d\n", r.Summary.Findings.Recommendations)

	if a := r.Advisory; a != nil {
		if a.Error != "" {
			fmt.Fprintf(w, "   advisory:        unavailable (%s)\n", a.Error)
		} else {
			approved := 0
			for _, e := range a.Executions {
				if e.Status == model.ExecutionApproved {
					approved++
				}
			}
			fmt.Fprintf(w, "   advisory:        %d commands, %d approved\n", len(a.Commands), approved)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "   ✅ %s\n", result.ArtifactPath)
	extra := make([]string, 0, len(result.Extra))
	for f := range result.Extra {
		extra = append(extra, f)
	}
	sort.Strings(extra)
	for _, f := range extra {
		fmt.Fprintf(w, "   ✅ %s\n", result.Extra[f])
	}
}

// resolveFormats determines the output formats to use.
// Command line flags take precedence over config file.
func resolveFormats(cfg *config.Config) []string {
	if len(formats) > 0 {
		return formats
	}
	if len(cfg.Report.Formats) > 0 {
		return cfg.Report.Formats
	}
	return []string{"json"}
}

// resolveOutputDir determines the output directory to use.
// Command line flags take precedence over config file.
func resolveOutputDir(cfg *config.Config) string {
	if outputDir != "" {
		return outputDir
	}
	if cfg.Report.OutputDir != "" {
		return cfg.Report.OutputDir
	}
	return "logs"
}
