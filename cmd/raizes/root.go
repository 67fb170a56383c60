package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"raizes/internal/config"
)

var version = ""

// NewRootCmd creates the root command. Without a subcommand it serves HTTP.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raizes",
		Short: "Backend for the Raízes family-history questionnaire",
		Long: `raizes proxies user registration, login and quiz operations to the
upstream API and renders the clinical summary of a quiz as a PDF report.

Configuration is read from --config, then $CONFIG_PATH, then ./config.yaml.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServeCmd,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML configuration file")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewRenderCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "raizes version %s\n", getVersion())
		},
	}
}

// getVersion prefers the ldflags value, then the module version, then "(devel)".
func getVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// loadConfig turns the panics of config.LoadFrom into an error.
func loadConfig(cmd *cobra.Command) (cfg config.Config, err error) {
	path, _ := cmd.Flags().GetString("config")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFrom(path), nil
}

// ensureLogDir creates the directory of the log file when needed.
func ensureLogDir(path string) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
