// Command ubicctl is a thin operator front-end over the ubic library: a
// single binary that can declare itself the guardian or worker of its
// own re-exec chain, or act as a plain CLI when invoked directly.
package main

import (
	"fmt"
	"os"

	"github.com/dayanruben/ubic"
)

func main() {
	// Every ubicctl invocation might secretly be a re-exec'd guardian or
	// worker stage rather than an interactive command; Reexec claims
	// those and never returns.
	if ubic.Reexec() {
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
