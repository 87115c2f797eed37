package main

import (
	"github.com/spf13/cobra"
)

var cfgPath string
var opConfig operatorConfig

var rootCmd = &cobra.Command{
	Use:   "ubicctl",
	Short: "Supervise a binary or in-process callback as a background service",
	Long: `ubicctl turns an executable into a supervised background service:
double-fork daemonization, a pidfile lock and identity record, and a
PID-reuse-resistant liveness check.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadOperatorConfig(cfgPath)
		if err != nil {
			return err
		}
		opConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to ubicctl's own TOML operator config (pidfile/log directories, color mode)")
}
