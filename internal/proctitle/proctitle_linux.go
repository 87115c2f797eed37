// Package proctitle gives a running process a name operators will
// recognize in process listings. There's no third-party process-title
// library anywhere in the retrieved example corpus, so this is the one
// piece of the module that reaches past the ecosystem to golang.org/x/sys
// directly — see DESIGN.md for the justification.
package proctitle

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set renames the calling process's kernel "comm" field (visible to
// `ps -o comm=`, /proc/<pid>/comm, and most process listings) via
// PR_SET_NAME. This does not rewrite the full command line shown by
// `ps -o args=` — that requires overwriting the argv backing memory in
// place, which is inherently unsafe and GOOS/arch-specific enough that
// it's left out here — so long titles are silently truncated to 15
// bytes by the kernel, the same limit PR_SET_NAME has always had.
func Set(title string) error {
	b := append([]byte(title), 0)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&b[0])), 0, 0, 0)
}
