package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dayanruben/ubic"
	"github.com/dayanruben/ubic/internal/pidfile"
	"github.com/dayanruben/ubic/internal/procident"
)

var (
	statusName    string
	statusPidfile string
)

var statusCommand = &cobra.Command{
	Use:   "status",
	Short: "Print name, pid, uptime, and identity token for a supervised service",
	RunE:  runStatus,
}

func init() {
	statusCommand.Flags().StringVar(&statusName, "name", "", "service name, used to locate the pidfile if --pidfile is unset")
	statusCommand.Flags().StringVar(&statusPidfile, "pidfile", "", "pidfile path")
	rootCmd.AddCommand(statusCommand)
}

var (
	statusLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	statusUpStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	statusDownStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

func runStatus(cmd *cobra.Command, args []string) error {
	path, err := resolvePidfile(statusPidfile, statusName)
	if err != nil {
		return err
	}

	present, err := ubic.Check(path)
	if err != nil {
		return fmt.Errorf("ubicctl: status: %w", err)
	}

	colorize := statusColorEnabled()

	name := statusName
	if name == "" {
		name = path
	}

	if !present {
		printStatusLine(colorize, name, "-", "-", "-", false)
		return nil
	}

	rec, kind, err := pidfile.Read(path)
	if err != nil {
		return fmt.Errorf("ubicctl: status: %w", err)
	}
	if kind != pidfile.KindCurrent || !rec.HasWorkerPID {
		printStatusLine(colorize, name, "-", "-", "-", true)
		return nil
	}

	uptime := "-"
	if startedAt, ok := procident.StartTime(rec.WorkerPID); ok {
		uptime = time.Since(startedAt).Truncate(time.Second).String()
	}

	printStatusLine(colorize, name, fmt.Sprintf("%d", rec.WorkerPID), uptime, fmt.Sprintf("%d", rec.Token), true)
	return nil
}

func statusColorEnabled() bool {
	switch opConfig.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		// isatty tells us the output is a terminal at all; the color
		// profile tells us whether that terminal (or NO_COLOR/COLORTERM)
		// actually wants ANSI color.
		return term.IsTerminal(int(os.Stdout.Fd())) && termenv.EnvColorProfile() != termenv.Ascii
	}
}

func printStatusLine(colorize bool, name, pid, uptime, token string, up bool) {
	state := "down"
	style := statusDownStyle
	if up {
		state = "up"
		style = statusUpStyle
	}
	if colorize {
		state = style.Render(state)
	}

	label := func(s string) string {
		if colorize {
			return statusLabelStyle.Render(s)
		}
		return s
	}

	fmt.Printf("%s %s  %s=%s  %s=%s  %s=%s  %s=%s\n",
		label("name"), name,
		label("state"), state,
		label("pid"), pid,
		label("uptime"), uptime,
		label("token"), token)
}
