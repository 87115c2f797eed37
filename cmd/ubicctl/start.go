package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dayanruben/ubic"
)

var (
	startName       string
	startExec       string
	startArgs       []string
	startPidfile    string
	startStdout     string
	startStderr     string
	startUbicLog    string
	startRunAsUser  string
	startGraceful   bool
	startVerifyExec bool
)

var startCommand = &cobra.Command{
	Use:   "start",
	Short: "Start a supervised service",
	RunE:  runStart,
}

func init() {
	startCommand.Flags().StringVar(&startName, "name", "", "service name, used in process titles and log lines")
	startCommand.Flags().StringVar(&startExec, "exec", "", "path to the binary to run as the worker")
	startCommand.Flags().StringArrayVar(&startArgs, "arg", nil, "argument to pass to --exec (repeatable)")
	startCommand.Flags().StringVar(&startPidfile, "pidfile", "", "pidfile path (defaults under the operator config's pidfile_dir)")
	startCommand.Flags().StringVar(&startStdout, "stdout", "", "worker stdout path")
	startCommand.Flags().StringVar(&startStderr, "stderr", "", "worker stderr path")
	startCommand.Flags().StringVar(&startUbicLog, "ubic-log", "", "guardian's technical log path")
	startCommand.Flags().StringVar(&startRunAsUser, "run-as-user", "", "drop privileges to this user before forking the worker")
	startCommand.Flags().BoolVar(&startGraceful, "graceful", false, "soft-kill before hard-kill when stopping")
	startCommand.Flags().BoolVar(&startVerifyExec, "verify-exec", false, "re-check the worker's cmdline after start")
	rootCmd.AddCommand(startCommand)
}

func runStart(cmd *cobra.Command, args []string) error {
	if startExec == "" {
		return fmt.Errorf("ubicctl: --exec is required")
	}

	name := startName
	if name == "" {
		name = filepath.Base(startExec)
	}

	pidfile := startPidfile
	if pidfile == "" {
		pidfile = filepath.Join(opConfig.PidfileDir, name+".pid")
	}
	ubicLog := startUbicLog
	if ubicLog == "" {
		ubicLog = filepath.Join(opConfig.LogDir, name+".ubic.log")
	}

	cfg := ubic.Config{
		Name:                 name,
		PidfilePath:          pidfile,
		StdoutPath:           startStdout,
		StderrPath:           startStderr,
		UbicLogPath:          ubicLog,
		RunAsUser:            startRunAsUser,
		GuardianGraceful:     startGraceful,
		VerifyExecAfterStart: startVerifyExec,
		Target: ubic.Target{
			Exec: &ubic.ExecTarget{Path: startExec, Args: startArgs},
		},
	}

	correlationID := uuid.NewString()
	tagStartAttempt(ubicLog, correlationID, name)

	result, err := ubic.Start(cfg)
	if err != nil {
		return fmt.Errorf("ubicctl: start %s (correlation %s): %w", name, correlationID, err)
	}

	fmt.Printf("started %s (correlation %s)\n", name, correlationID)
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	return nil
}

// tagStartAttempt writes one grep-able line to the guardian's own log
// before the fork chain begins, so a correlation id ties the CLI
// invocation to whatever the guardian later logs about the same attempt.
func tagStartAttempt(ubicLog, correlationID, name string) {
	f, err := os.OpenFile(ubicLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s ubicctl start requested name=%s correlation=%s\n",
		time.Now().UTC().Format(time.RFC3339), name, correlationID)
}
