package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dayanruben/ubic"
)

var (
	stopName    string
	stopPidfile string
)

var stopCommand = &cobra.Command{
	Use:   "stop",
	Short: "Stop a supervised service",
	RunE:  runStop,
}

func init() {
	stopCommand.Flags().StringVar(&stopName, "name", "", "service name, used to locate the pidfile if --pidfile is unset")
	stopCommand.Flags().StringVar(&stopPidfile, "pidfile", "", "pidfile path")
	rootCmd.AddCommand(stopCommand)
}

func runStop(cmd *cobra.Command, args []string) error {
	path, err := resolvePidfile(stopPidfile, stopName)
	if err != nil {
		return err
	}

	status, err := ubic.Stop(path)
	if err != nil {
		return fmt.Errorf("ubicctl: stop: %w", err)
	}
	fmt.Println(status)
	return nil
}

func resolvePidfile(pidfile, name string) (string, error) {
	if pidfile != "" {
		return pidfile, nil
	}
	if name == "" {
		return "", fmt.Errorf("ubicctl: either --pidfile or --name is required")
	}
	return filepath.Join(opConfig.PidfileDir, name+".pid"), nil
}
