package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	get_completions "github.com/walteh/qlikls/cmd/qlikls/get-completions"
	get_diagnostics "github.com/walteh/qlikls/cmd/qlikls/get-diagnostics"
	"github.com/walteh/qlikls/cmd/qlikls/highlight"
	serve_lsp "github.com/walteh/qlikls/cmd/qlikls/serve-lsp"
	"github.com/walteh/qlikls/cmd/qlikls/tokenize"
	qdebug "github.com/walteh/qlikls/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "qlikls",
		Short:         "language tooling for Qlik load scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging on stderr")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		colorize := isatty.IsTerminal(os.Stderr.Fd())
		logger := qdebug.NewConsoleLogger(os.Stderr, verbose, colorize)
		cmd.SetContext(logger.WithContext(cmd.Context()))
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand(rootCmd.Version))
	rootCmd.AddCommand(tokenize.NewTokenizeCommand())
	rootCmd.AddCommand(get_completions.NewGetCompletionsCommand())
	rootCmd.AddCommand(get_diagnostics.NewGetDiagnosticsCommand())
	rootCmd.AddCommand(highlight.NewHighlightCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
