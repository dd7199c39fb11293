// Package main provides the CLI entry point for refimg.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ukaji3/refimg-go/internal/config"
	"github.com/ukaji3/refimg-go/internal/entrypoint"
	"github.com/ukaji3/refimg-go/pkg/refimg/output"
	"github.com/ukaji3/refimg-go/pkg/refimg/upload"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	configPath string
	outputPath string
	pretty     bool
	dryRunDir  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "refimg",
		Short: "Publish workbook images under their reference codes",
		Long: `refimg reads an xlsx workbook, pairs every embedded image with the
reference code on the same row and uploads it to a remote directory as
<code>.<ext>.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML, TOML or JSON)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload service",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	processCmd := &cobra.Command{
		Use:   "process [input.xlsx]",
		Short: "Process one workbook and print the JSON report",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	processCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	processCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	processCmd.Flags().StringVar(&dryRunDir, "dry-run", "", "Write images under this local directory instead of the remote target")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	rootCmd.AddCommand(serveCmd, processCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dryRunDir != "" {
		cfg.Upload.Backend = upload.BackendLocal
		cfg.Upload.LocalRoot = dryRunDir
		if err := os.MkdirAll(dryRunDir, 0o755); err != nil {
			return nil, fmt.Errorf("create dry-run directory: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := entrypoint.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return entrypoint.Serve(ctx, cfg, version, logger)
}

func runProcess(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := entrypoint.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := entrypoint.ProcessFile(ctx, cfg, inputPath, logger)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if outputPath == "" {
		return output.WriteJSON(cmd.OutOrStdout(), summary, pretty)
	}

	jsonData, err := output.ToJSON(summary, pretty)
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
