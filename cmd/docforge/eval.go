package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type evalOptions struct {
	context string
	output  string
	explain bool
}

func newEvalCmd(a *app) *cobra.Command {
	opts := &evalOptions{}

	cmd := &cobra.Command{
		Use:   "eval CONDITION",
		Short: "Evaluate a condition against a context",
		Long: `Evaluate a boolean condition the way an {% if %} block would.

Operators, from lowest to highest precedence: OR, AND, NOT. Comparisons
(==, !=, <, <=, >, >=) bind tighter than NOT.

Example usage:
  docforge eval "age >= 18 AND has_consent OR is_emergency" -c patient.yaml
  docforge eval "user.role == 'admin'" -c ctx.json --explain`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := loadContext(opts.context)
			if err != nil {
				return err
			}
			res, err := a.engine.EvaluateCondition(args[0], ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch opts.output {
			case "text":
			case "json", "yaml":
				return writeStructured(out, opts.output, res)
			default:
				return fmt.Errorf("unsupported output format %q", opts.output)
			}

			fmt.Fprintln(out, res.Result)
			if opts.explain {
				fmt.Fprintf(out, "tree:       %s\n", res.Tree)
				fmt.Fprintf(out, "references: %s\n", listOrNone(res.References))
				fmt.Fprintf(out, "evaluated:  %s\n", listOrNone(res.Trace))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.context, "context", "c", "", "Path to a context file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Print the parse tree and the variables that were read")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docforge %s\n", strings.TrimSpace(version))
		},
	}
}
