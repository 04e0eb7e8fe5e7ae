package main

import (
	"fmt"
	"os"

	"github.com/octoberswimmer/uibind"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// global flags
var (
	configPath string
	verbose    bool
)

// root command
var rootCmd = &cobra.Command{
	Use:           "uibind",
	Short:         "Inspect and serve pages whose elements bind to social widgets",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML binder configuration (rules, timing)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every binder decision")
	rootCmd.AddCommand(checkCmd, rulesCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// loadConfig reads --config, or returns the built-in configuration.
func loadConfig() (*uibind.Config, error) {
	if configPath == "" {
		return &uibind.Config{}, nil
	}
	return uibind.LoadConfigFile(configPath)
}
