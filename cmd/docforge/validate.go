package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-docforge/pkg/docforge"
)

type validateOptions struct {
	template string
	context  string
	output   string
}

func newValidateCmd(a *app) *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Statically check a template",
		Long: `Validate a template without rendering it.

Reports malformed markers, unbalanced blocks, invalid conditions, includes of
undefined sections and circular section references. With --context, variables
the context cannot resolve are reported as warnings.

The command exits with an error when the template is invalid.

Example usage:
  docforge validate -t letter.txt
  docforge validate -t letter.txt -c customer.yaml --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, a, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "Path to the template file, - for stdin (required)")
	cmd.Flags().StringVarP(&opts.context, "context", "c", "", "Context file used to report unknown variables")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "summary", "Output format: summary, json, yaml")
	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func runValidate(cmd *cobra.Command, a *app, opts *validateOptions) error {
	switch opts.output {
	case "summary", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", opts.output)
	}

	template, err := readTemplate(cmd, opts.template)
	if err != nil {
		return err
	}

	var (
		res       *docforge.ValidationResult
		available []string
	)
	if opts.context != "" {
		ctx, err := loadContext(opts.context)
		if err != nil {
			return err
		}
		res = a.engine.ValidateAgainst(template, ctx)
		available = docforge.AvailablePaths(ctx)
	} else {
		res = a.engine.Validate(template)
	}

	out := cmd.OutOrStdout()
	if opts.output == "summary" {
		err = writeSummary(out, opts.template, res, available)
	} else {
		err = writeStructured(out, opts.output, res)
	}
	if err != nil {
		return err
	}

	if !res.Valid {
		return fmt.Errorf("template is invalid: %d error(s)", len(res.Errors))
	}
	return nil
}

// writeSummary prints a human readable report. available is only listed
// when a context was given.
func writeSummary(w io.Writer, name string, res *docforge.ValidationResult, available []string) error {
	var b strings.Builder
	status := "VALID"
	if !res.Valid {
		status = "INVALID"
	}
	fmt.Fprintf(&b, "%s: %s\n", name, status)
	fmt.Fprintf(&b, "  variables:  %s\n", listOrNone(res.Variables))
	fmt.Fprintf(&b, "  conditions: %s\n", listOrNone(res.Conditions))
	fmt.Fprintf(&b, "  sections:   %s\n", listOrNone(res.Sections))
	if available != nil {
		fmt.Fprintf(&b, "  context:    %s\n", listOrNone(available))
	}
	for _, issue := range res.Issues {
		fmt.Fprintf(&b, "  %s [%s] %s\n", issue.Severity, issue.Code, issue.Message)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
