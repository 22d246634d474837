// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Command fluidflow parses LLM code-generation responses into file
// operations and applies them to a project directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gitpkg "github.com/ersinkoc/fluidflow/internal/git"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "fluidflow",
		Short: "LLM response parsing and repair engine",
		Long:  "fluidflow extracts file operations from LLM code-generation responses, repairs truncated syntax, and applies the result to your project.",
	}

	// Global flags.
	rootCmd.PersistentFlags().String("workdir", ".", "Project root directory")
	rootCmd.PersistentFlags().String("format", "auto", "Expected response format: auto, json, or marker")
	rootCmd.PersistentFlags().Bool("diff-mode", false, "Allow search/replace hunks in JSON responses")
	rootCmd.PersistentFlags().Bool("no-repair", false, "Disable the syntax repair pipeline")
	rootCmd.PersistentFlags().StringSlice("disable-pass", nil, "Repair passes to skip (brackets, jsx, imports, returns)")
	rootCmd.PersistentFlags().Bool("no-git", false, "Disable git operations")

	// Bind flags to viper.
	viper.BindPFlag("workdir", rootCmd.PersistentFlags().Lookup("workdir"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("diff-mode", rootCmd.PersistentFlags().Lookup("diff-mode"))
	viper.BindPFlag("no-repair", rootCmd.PersistentFlags().Lookup("no-repair"))
	viper.BindPFlag("disable-pass", rootCmd.PersistentFlags().Lookup("disable-pass"))
	viper.BindPFlag("no-git", rootCmd.PersistentFlags().Lookup("no-git"))

	// Env vars: FLUIDFLOW_WORKDIR, FLUIDFLOW_FORMAT, etc.
	viper.SetEnvPrefix("FLUIDFLOW")
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".fluidflow")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last fluidflow commit",
		Long:  "Undo performs a soft reset of the last commit if it was made by fluidflow.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir := viper.GetString("workdir")

			repo, err := gitpkg.Open(gitpkg.Config{WorkDir: workDir})
			if err != nil {
				return fmt.Errorf("opening repository: %w", err)
			}

			if err := repo.Undo(); err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}

			fmt.Println("Successfully reverted last fluidflow commit.")
			return nil
		},
	}
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print fluidflow version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fluidflow %s\n", version)
		},
	}
}
