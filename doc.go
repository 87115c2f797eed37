// Package ubic turns an executable or an in-process callback into a
// supervised background service on a POSIX host.
//
// Three pieces make up the whole of it, and they agree on a single
// on-disk contract (see the pidfile sub-package's doc comment):
//
//   - Start double-forks — modeled here as a double self re-exec, since a
//     real fork(2) is unsafe once the Go runtime has spun up goroutines
//     and OS threads — to produce a guardian process that supervises a
//     worker process.
//   - The guardian holds an advisory lock on the pidfile for its entire
//     life; the pidfile's presence and the lock's holder are the same
//     fact observed two ways.
//   - Check never talks to the guardian directly, and Stop's only contact
//     with it is the termination signal sent to its PID. Both reason
//     about it by probing the lock, parsing the pidfile, and reading
//     /proc for the worker's start-time token.
//
// Start re-executes the calling binary for every stage of the chain,
// whichever arm of Target is used, so any program that calls Start must
// call Reexec at the very top of its own main, before any other
// initialization runs:
//
//	func main() {
//		if ubic.Reexec() {
//			return // unreachable: Reexec exits the process itself
//		}
//		// ... normal program startup ...
//	}
//
// Reexec is a cheap no-op (checks one environment variable) when the
// process isn't one of ubic's own descendants, so it's safe to call
// unconditionally.
package ubic
