// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ersinkoc/fluidflow/internal/apply"
	gitpkg "github.com/ersinkoc/fluidflow/internal/git"
	"github.com/ersinkoc/fluidflow/pkg/parse"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

// parseReport is the JSON shape printed for a parse or apply run.
type parseReport struct {
	Format      string      `json:"format"`
	Plan        string      `json:"plan,omitempty"`
	Truncated   bool        `json:"truncated"`
	Repaired    bool        `json:"repaired"`
	Operations  []opReport  `json:"operations"`
	Errors      []string    `json:"errors,omitempty"`
	Written     []string    `json:"written,omitempty"`
	Deleted     []string    `json:"deleted,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
	ApplyErrors []string    `json:"apply_errors,omitempty"`
}

type opReport struct {
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Bytes    int    `json:"bytes,omitempty"`
	Hunks    int    `json:"hunks,omitempty"`
	Repaired bool   `json:"repaired,omitempty"`
}

// newParseCmd creates the "parse" command: parse a response without
// touching the working directory.
func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [response-file]",
		Short: "Parse a response into file operations",
		Long:  "Parse reads an LLM response from a file (or stdin) and prints the extracted file operations as JSON without modifying anything.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}

			opts, err := optionsFromConfig(false)
			if err != nil {
				return err
			}

			result, err := parse.Parse(cmd.Context(), text, opts)
			if err != nil {
				return fmt.Errorf("parse failed: %w", err)
			}

			printReport(buildReport(result, nil))
			return nil
		},
	}
	return cmd
}

// newApplyCmd creates the "apply" command: parse a response and write the
// operations into the working directory.
func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [response-file]",
		Short: "Parse a response and apply it to the workdir",
		Long:  "Apply parses an LLM response and writes the resulting creates, updates, patches, and deletes into the project directory.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}

			opts, err := optionsFromConfig(true)
			if err != nil {
				return err
			}

			result, err := parse.Parse(cmd.Context(), text, opts)
			if err != nil {
				return fmt.Errorf("parse failed: %w", err)
			}

			applied, err := applyAndCommit(result, "apply parsed response")
			if err != nil {
				return err
			}

			printReport(buildReport(result, applied))
			return nil
		},
	}
	return cmd
}

// readInput returns the response text from the file argument or stdin.
func readInput(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading response: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// optionsFromConfig builds parse options from viper state. withWorkspace
// additionally walks the workdir so updates to unknown paths become creates.
func optionsFromConfig(withWorkspace bool) (parse.Options, error) {
	opts := parse.Options{
		DiffMode:       viper.GetBool("diff-mode"),
		DisableRepair:  viper.GetBool("no-repair"),
		DisabledPasses: viper.GetStringSlice("disable-pass"),
	}

	switch f := viper.GetString("format"); f {
	case "", "auto":
	case "json":
		opts.Hint = types.FormatJSON
	case "marker":
		opts.Hint = types.FormatMarker
	default:
		return opts, fmt.Errorf("unknown format %q (want auto, json, or marker)", f)
	}

	if withWorkspace {
		existing, err := apply.ExistingPaths(viper.GetString("workdir"))
		if err != nil {
			return opts, fmt.Errorf("scanning workdir: %w", err)
		}
		opts.ExistingPaths = existing
	}
	return opts, nil
}

// applyAndCommit writes the parsed operations to the workdir and, when
// git integration is on, commits them.
func applyAndCommit(result *types.ParseResult, prompt string) (*apply.Result, error) {
	workDir := viper.GetString("workdir")

	applier := &apply.Applier{Root: workDir}
	applied, err := applier.Apply(result)
	if err != nil {
		return nil, fmt.Errorf("apply failed: %w", err)
	}

	if !viper.GetBool("no-git") {
		if repo, err := gitpkg.Open(gitpkg.Config{WorkDir: workDir, AutoCommit: true, DirtyCommit: true}); err == nil {
			touched := append(append([]string{}, applied.Written...), applied.Deleted...)
			if len(touched) > 0 {
				if err := repo.AutoCommit(touched, prompt); err != nil {
					applied.Errors = append(applied.Errors, types.OperationError{Err: fmt.Errorf("auto-commit: %w", err)})
				}
			}
		}
	}
	return applied, nil
}

func buildReport(result *types.ParseResult, applied *apply.Result) parseReport {
	report := parseReport{
		Format:    result.UsedFormat.String(),
		Plan:      result.PlanSummary,
		Truncated: result.IsTruncated,
		Repaired:  result.NeededRepair,
	}
	for _, op := range result.Operations {
		_, repaired := result.Traces[op.Path]
		report.Operations = append(report.Operations, opReport{
			Kind:     op.Kind.String(),
			Path:     op.Path,
			Bytes:    len(op.Content),
			Hunks:    len(op.Hunks),
			Repaired: repaired,
		})
	}
	for _, e := range result.Errors {
		report.Errors = append(report.Errors, e.Error())
	}
	if applied != nil {
		report.Written = applied.Written
		report.Deleted = applied.Deleted
		report.Warnings = applied.Warnings
		for _, e := range applied.Errors {
			report.ApplyErrors = append(report.ApplyErrors, e.Error())
		}
	}
	return report
}

// printReport outputs the report as JSON to stdout.
func printReport(report parseReport) {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling report: %v\n", err)
		return
	}
	fmt.Println(string(out))
}
