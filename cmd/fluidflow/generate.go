// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ersinkoc/fluidflow/internal/apply"
	gitpkg "github.com/ersinkoc/fluidflow/internal/git"
	"github.com/ersinkoc/fluidflow/internal/llm"
	"github.com/ersinkoc/fluidflow/pkg/parse"
	"github.com/ersinkoc/fluidflow/pkg/types"
)

const defaultLLMTimeout = 5 * time.Minute

// maxRetryRounds bounds the error-feedback loop: one retry is usually
// enough for the model to fix a bad hunk, and more just burns tokens.
const maxRetryRounds = 1

// newGenerateCmd creates the "generate" command: send a task to the
// model, parse the streamed response, and apply it.
func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and apply code from a prompt",
		Long:  "Generate sends a coding task to the model, parses the streamed response incrementally, and applies the resulting file operations to the project.",
		RunE:  runGenerate,
	}

	cmd.Flags().StringP("prompt", "p", "", "Coding task description (required)")
	cmd.Flags().String("model", "", "Bedrock model ID (required)")
	cmd.Flags().String("region", "", "AWS region for Bedrock (required)")
	cmd.Flags().Int("max-tokens", 4096, "Maximum tokens for the response")
	cmd.MarkFlagRequired("prompt")

	viper.BindPFlag("model", cmd.Flags().Lookup("model"))
	viper.BindPFlag("region", cmd.Flags().Lookup("region"))
	viper.BindPFlag("max-tokens", cmd.Flags().Lookup("max-tokens"))

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	workDir := viper.GetString("workdir")
	model := viper.GetString("model")
	region := viper.GetString("region")
	if model == "" || region == "" {
		return fmt.Errorf("model and region are required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Dirty-file handling before any writes.
	var repo *gitpkg.Repo
	if !viper.GetBool("no-git") {
		if r, err := gitpkg.Open(gitpkg.Config{WorkDir: workDir, AutoCommit: true, DirtyCommit: true}); err == nil {
			repo = r
			if err := r.HandleDirty(); err != nil {
				return fmt.Errorf("handling dirty files: %w", err)
			}
		}
	}

	client, err := llm.NewClient(ctx, llm.ClientConfig{
		ModelID:   model,
		Region:    region,
		Timeout:   defaultLLMTimeout,
		MaxTokens: viper.GetInt("max-tokens"),
	})
	if err != nil {
		return fmt.Errorf("initializing LLM client: %w", err)
	}

	diffMode := viper.GetBool("diff-mode")
	system, messages := llm.ConstructMessages(
		llm.SystemPrompt(true, diffMode),
		readProjectFiles(workDir),
		prompt,
	)

	applier := &apply.Applier{Root: workDir}

	var result *types.ParseResult
	var applied *apply.Result
	var touched []string

	for round := 0; ; round++ {
		// Re-walk the workdir each round: files the previous round wrote
		// are updates now, not creates.
		opts, err := optionsFromConfig(true)
		if err != nil {
			return err
		}
		opts.Hint = types.FormatMarker

		session, err := parse.NewSession(opts)
		if err != nil {
			return err
		}

		tokenCh, resultCh := client.SendPrompt(ctx, system, messages)
		for token := range tokenCh {
			for _, op := range session.Feed(token) {
				fmt.Fprintf(os.Stderr, "completed %s %s\n", op.Kind, op.Path)
			}
		}
		<-resultCh

		result, err = session.Finish(ctx)
		if err != nil {
			return fmt.Errorf("parse failed: %w", err)
		}

		applied, err = applier.Apply(result)
		if err != nil {
			return fmt.Errorf("apply failed: %w", err)
		}
		touched = append(touched, applied.Written...)
		touched = append(touched, applied.Deleted...)

		feedback := retryFeedback(result, applied)
		if feedback == "" || round >= maxRetryRounds {
			break
		}
		fmt.Fprintf(os.Stderr, "retrying: %d errors\n",
			len(result.Errors)+len(applied.Errors))
		messages = llm.ConstructRetryMessages(messages, result.RawText, feedback)
	}

	if repo != nil && len(touched) > 0 {
		if err := repo.AutoCommit(touched, prompt); err != nil {
			fmt.Fprintf(os.Stderr, "auto-commit failed: %v\n", err)
		}
	}

	printReport(buildReport(result, applied))
	return nil
}

// retryFeedback renders the contained parse and apply errors as the
// feedback sent back to the model, or "" when everything applied cleanly.
func retryFeedback(result *types.ParseResult, applied *apply.Result) string {
	var lines []string
	for _, e := range result.Errors {
		lines = append(lines, "- "+e.Error())
	}
	for _, e := range applied.Errors {
		lines = append(lines, "- "+e.Error())
	}
	return strings.Join(lines, "\n")
}

// readProjectFiles reads the web-project source files sent to the model
// as context. Large files and dependency directories are skipped.
func readProjectFiles(workDir string) []types.FileContent {
	var files []types.FileContent

	_ = filepath.Walk(workDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			base := filepath.Base(path)
			if base == ".git" || base == "node_modules" || base == "dist" || base == "build" {
				return filepath.SkipDir
			}
			return nil
		}

		switch filepath.Ext(path) {
		case ".ts", ".tsx", ".js", ".jsx", ".css", ".html", ".json":
		default:
			return nil
		}
		if info.Size() > 64*1024 {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel, _ := filepath.Rel(workDir, path)
		files = append(files, types.FileContent{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})

	return files
}
