package ubic

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/dayanruben/ubic/internal/unixsignal"
)

// TestMain lets this same test binary act as the re-exec target: Start
// launches os.Executable() (this binary) with a stage marker, and
// Reexec intercepts before any test runs.
func TestMain(m *testing.M) {
	if Reexec() {
		return
	}
	os.Exit(m.Run())
}

func requireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("daemonization protocol targets POSIX hosts with a /proc-style view")
	}
	if _, err := os.Stat("/bin/sleep"); err != nil {
		t.Skip("/bin/sleep not available")
	}
}

func TestHappyPathStartCheckStop(t *testing.T) {
	requireLinux(t)

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "t1.pid")

	cfg := Config{
		Name:        "sleeper",
		PidfilePath: pidPath,
		Target:      Target{Exec: &ExecTarget{Path: "/bin/sleep", Args: []string{"3600"}}},
	}

	if _, err := Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}

	present, err := Check(pidPath)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !present {
		t.Fatal("expected daemon present after Start")
	}

	data, err := os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("reading pidfile: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty pidfile while running")
	}

	status, err := Stop(pidPath)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if status != StatusStopped {
		t.Fatalf("expected StatusStopped, got %v", status)
	}

	present, err = Check(pidPath)
	if err != nil {
		t.Fatalf("Check after Stop: %v", err)
	}
	if present {
		t.Fatal("expected daemon not present after Stop")
	}

	data, err = os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("reading pidfile after stop: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected zero-length pidfile after Stop, got %d bytes", len(data))
	}
}

func TestDoubleStartFails(t *testing.T) {
	requireLinux(t)

	dir := t.TempDir()
	pidPath := filepath.Join(dir, "t2.pid")
	cfg := Config{
		PidfilePath: pidPath,
		Target:      Target{Exec: &ExecTarget{Path: "/bin/sleep", Args: []string{"3600"}}},
	}

	if _, err := Start(cfg); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer Stop(pidPath)

	_, err := Start(cfg)
	if err == nil {
		t.Fatal("expected second Start to fail")
	}
	if _, ok := err.(*PreconditionError); !ok {
		t.Fatalf("expected *PreconditionError, got %T: %v", err, err)
	}
}

func TestStopMissingPidfileNotRunning(t *testing.T) {
	dir := t.TempDir()
	status, err := Stop(filepath.Join(dir, "nope.pid"))
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if status != StatusNotRunning {
		t.Fatalf("expected StatusNotRunning, got %v", status)
	}
}

func TestStopEmptyPidfileNotRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pid")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	status, err := Stop(path)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if status != StatusNotRunning {
		t.Fatalf("expected StatusNotRunning, got %v", status)
	}
}

func TestCheckStaleDeadWorkerClearsPidfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stale.pid")
	content := "pid 1\npid-token 0\ndaemon-pid 999999\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	present, err := Check(path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if present {
		t.Fatal("expected not present for a dead worker PID")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("expected pidfile cleared, got %q", data)
	}
}

func TestCheckReusedPidDoesNotKill(t *testing.T) {
	requireLinux(t)

	// Use our own process as the "unrelated process that now owns the
	// PID" and deliberately record the wrong token, so Check sees a
	// mismatch instead of a match.
	dir := t.TempDir()
	path := filepath.Join(dir, "reused.pid")
	content := "pid 1\npid-token 1\ndaemon-pid " + strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	present, err := Check(path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if present {
		t.Fatal("expected not present for a reused PID")
	}
	if !unixsignal.IsAlive(os.Getpid()) {
		t.Fatal("test process should still be alive — Check must never kill on a token mismatch")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Fatalf("expected pidfile cleared even on mismatch, got %q", data)
	}
}

func TestCheckLegacyPidfileLeavesFileIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.pid")
	if err := os.WriteFile(path, []byte("4242"), 0644); err != nil {
		t.Fatal(err)
	}

	present, err := Check(path)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if present {
		t.Fatal("expected not present for a legacy pidfile")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4242" {
		t.Fatalf("expected legacy pidfile left untouched, got %q", data)
	}
}
