package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayanruben/ubic"
)

var (
	checkName    string
	checkPidfile string
)

var checkCommand = &cobra.Command{
	Use:   "check",
	Short: "Report whether a supervised service is present",
	RunE:  runCheck,
}

func init() {
	checkCommand.Flags().StringVar(&checkName, "name", "", "service name, used to locate the pidfile if --pidfile is unset")
	checkCommand.Flags().StringVar(&checkPidfile, "pidfile", "", "pidfile path")
	rootCmd.AddCommand(checkCommand)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path, err := resolvePidfile(checkPidfile, checkName)
	if err != nil {
		return err
	}

	present, err := ubic.Check(path)
	if err != nil {
		return fmt.Errorf("ubicctl: check: %w", err)
	}

	if present {
		fmt.Println("present")
		return nil
	}
	fmt.Println("absent")
	os.Exit(1)
	return nil
}
