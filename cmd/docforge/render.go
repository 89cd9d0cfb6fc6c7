package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

type renderOptions struct {
	template string
	contexts []string
	outDir   string
	workers  int
	output   string
	strict   bool
}

// renderOutcome is one rendered context in structured output.
type renderOutcome struct {
	Context             string   `json:"context,omitempty" yaml:"context,omitempty"`
	OutputFile          string   `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
	Output              string   `json:"output,omitempty" yaml:"output,omitempty"`
	VariablesUsed       []string `json:"variablesUsed" yaml:"variablesUsed"`
	ConditionsEvaluated []string `json:"conditionsEvaluated" yaml:"conditionsEvaluated"`
	Unresolved          []string `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

type renderReport struct {
	RunID   string          `json:"runId" yaml:"runId"`
	Results []renderOutcome `json:"results" yaml:"results"`
}

func newRenderCmd(a *app) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template against one or more context files",
		Long: `Render a template against context files (.json, .yaml, .yml or .hcl).

With a single context (or none) the document is written to stdout. With
several contexts --out-dir is required and one file per context is written,
named after the context file and carrying the template's extension.

Example usage:
  # Render to stdout
  docforge render -t letter.txt -c customer.yaml

  # Render a batch with 8 workers
  docforge render -t letter.txt -c a.json -c b.json -c c.hcl --out-dir out --workers 8

  # Structured result with variables and conditions
  docforge render -t letter.txt -c customer.yaml --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Path to the template file, - for stdin (required)")
	cmd.Flags().StringArrayVarP(&opts.contexts, "context", "c", nil, "Path to a context file (repeatable)")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "Directory for rendered documents")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Number of parallel render workers (0=auto-detect CPUs)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Fail when a variable does not resolve")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func runRender(cmd *cobra.Command, a *app, opts *renderOptions) error {
	switch opts.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", opts.output)
	}
	if len(opts.contexts) > 1 && opts.outDir == "" {
		return fmt.Errorf("--out-dir is required when rendering %d contexts", len(opts.contexts))
	}

	template, err := readTemplate(cmd, opts.template)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	contexts := opts.contexts
	if len(contexts) == 0 {
		contexts = []string{""}
	}

	targets, err := outputFiles(opts, contexts)
	if err != nil {
		return err
	}
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	workers := opts.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger.Info("rendering", "template", opts.template, "contexts", len(opts.contexts), "workers", workers)

	outcomes := make([]renderOutcome, len(contexts))
	g, gCtx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)

	for i, path := range contexts {
		i, path := i, path
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			outcome, err := renderOne(a.engine, template, path, opts.strict)
			if err != nil {
				return err
			}
			if target := targets[i]; target != "" {
				if err := os.WriteFile(target, []byte(outcome.Output), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", target, err)
				}
				outcome.OutputFile = target
				outcome.Output = ""
				logger.Info("rendered document", "context", path, "file", target)
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output != "text" {
		return writeStructured(out, opts.output, renderReport{RunID: runID, Results: outcomes})
	}
	if opts.outDir == "" {
		_, err := fmt.Fprint(out, outcomes[0].Output)
		return err
	}
	return nil
}

func renderOne(engine *docforge.Engine, template, contextPath string, strict bool) (renderOutcome, error) {
	ctx, err := loadContext(contextPath)
	if err != nil {
		return renderOutcome{}, err
	}
	result, err := engine.Render(template, ctx)
	if err != nil {
		if contextPath != "" {
			return renderOutcome{}, fmt.Errorf("%s: %w", contextPath, err)
		}
		return renderOutcome{}, err
	}
	if strict && len(result.Unresolved) > 0 {
		return renderOutcome{}, fmt.Errorf("%s: unresolved variables: %s",
			displayName(contextPath), strings.Join(result.Unresolved, ", "))
	}
	return renderOutcome{
		Context:             contextPath,
		Output:              result.Output,
		VariablesUsed:       result.VariablesUsed,
		ConditionsEvaluated: result.ConditionsEvaluated,
		Unresolved:          result.Unresolved,
	}, nil
}

// outputFiles maps each context to its output path, or "" for stdout.
func outputFiles(opts *renderOptions, contexts []string) ([]string, error) {
	targets := make([]string, len(contexts))
	if opts.outDir == "" {
		return targets, nil
	}

	ext := filepath.Ext(opts.template)
	if ext == "" || opts.template == "-" {
		ext = ".txt"
	}
	seen := make(map[string]string, len(contexts))
	for i, path := range contexts {
		stem := "document"
		if path != "" {
			stem = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		target := filepath.Join(opts.outDir, stem+ext)
		if prev, ok := seen[target]; ok {
			return nil, fmt.Errorf("contexts %s and %s would both be written to %s", prev, path, target)
		}
		seen[target] = path
		targets[i] = target
	}
	return targets, nil
}

func displayName(path string) string {
	if path == "" {
		return "empty context"
	}
	return path
}
