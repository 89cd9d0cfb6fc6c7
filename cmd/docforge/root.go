package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
	"github.com/benjaminschreck/go-docforge/pkg/docforge/contextfile"
	"github.com/benjaminschreck/go-docforge/pkg/docforge/metrics"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

type rootOptions struct {
	configFile  string
	logLevel    string
	logFormat   string
	maxDepth    int
	maxIncludes int
	trimBlocks  bool
	metricsFile string
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	opts     rootOptions
	config   *docforge.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	engine   *docforge.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "docforge",
		Short: "Render and validate document templates",
		Long: `docforge renders text document templates against JSON, YAML or HCL
context files and statically validates them.

Templates support variable markers ({{ user.name }}), conditional blocks
({% if age >= 18 AND has_consent %}...{% else %}...{% endif %}) and named
reusable sections ({% section footer %}...{% endsection %}, {% include footer %}).

Configuration is loaded from:
1. Command-line flags (highest priority)
2. Environment variables (DOCFORGE_*)
3. The file given with --config
4. Default values (lowest priority)`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRunE: func(*cobra.Command, []string) error { return a.finish() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configFile, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: DOCFORGE_LOG_LEVEL)")
	flags.StringVar(&a.opts.logFormat, "log-format", "", "Log format: text, json (env: DOCFORGE_LOG_FORMAT)")
	flags.IntVar(&a.opts.maxDepth, "max-depth", 0, "Maximum nesting and include depth (env: DOCFORGE_MAX_DEPTH)")
	flags.IntVar(&a.opts.maxIncludes, "max-includes", 0, "Maximum section expansions per render (env: DOCFORGE_MAX_INCLUDES)")
	flags.BoolVar(&a.opts.trimBlocks, "trim-blocks", false, "Drop the first newline after a block tag (env: DOCFORGE_TRIM_BLOCKS)")
	flags.StringVar(&a.opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file on exit")

	root.AddCommand(
		newRenderCmd(a),
		newValidateCmd(a),
		newEvalCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup resolves the configuration and builds the logger, metrics registry
// and engine.
func (a *app) setup(cmd *cobra.Command) error {
	var (
		config *docforge.Config
		err    error
	)
	if a.opts.configFile != "" {
		config, err = docforge.LoadConfigFile(a.opts.configFile)
		if err != nil {
			return err
		}
	} else {
		config = docforge.ConfigFromEnvironment()
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		config.LogLevel = strings.ToLower(a.opts.logLevel)
	}
	if flags.Changed("log-format") {
		config.LogFormat = strings.ToLower(a.opts.logFormat)
	}
	if flags.Changed("max-depth") {
		config.MaxDepth = a.opts.maxDepth
	}
	if flags.Changed("max-includes") {
		config.MaxIncludes = a.opts.maxIncludes
	}
	if flags.Changed("trim-blocks") {
		config.TrimBlocks = a.opts.trimBlocks
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.config = config
	a.logger = docforge.NewLogger(cmd.ErrOrStderr(), docforge.ParseLogLevel(config.LogLevel), config.LogFormat)
	a.registry = prometheus.NewRegistry()
	a.engine = docforge.NewWithConfig(config,
		docforge.WithLogger(a.logger),
		docforge.WithObserver(metrics.New(a.registry)))

	a.logger.Debug("configuration loaded",
		"config_file", a.opts.configFile,
		"log_level", config.LogLevel,
		"max_depth", config.MaxDepth,
		"max_includes", config.MaxIncludes,
		"trim_blocks", config.TrimBlocks)
	return nil
}

func (a *app) finish() error {
	if a.opts.metricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.opts.metricsFile, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// readTemplate reads a template file, or stdin when path is "-".
func readTemplate(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return string(data), nil
}

// loadContext loads a context file, or returns an empty context for "".
func loadContext(path string) (docforge.Context, error) {
	if path == "" {
		return docforge.NewContext(), nil
	}
	return contextfile.Load(path)
}

// writeStructured prints v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported output format %q", format)
}
