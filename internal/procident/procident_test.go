package procident

import (
	"os"
	"os/exec"
	"testing"
	"time"
)

func TestIdentityOfSelf(t *testing.T) {
	token, ok, err := IdentityOf(os.Getpid())
	if err != nil {
		t.Fatalf("IdentityOf: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for our own live PID")
	}
	if token == 0 {
		t.Log("start-time token is zero; unusual but not necessarily wrong on all kernels")
	}
}

func TestIdentityOfIsIdempotent(t *testing.T) {
	pid := os.Getpid()
	first, ok1, err := IdentityOf(pid)
	if err != nil || !ok1 {
		t.Fatalf("first probe: token=%d ok=%v err=%v", first, ok1, err)
	}
	second, ok2, err := IdentityOf(pid)
	if err != nil || !ok2 {
		t.Fatalf("second probe: token=%d ok=%v err=%v", second, ok2, err)
	}
	if first != second {
		t.Errorf("expected stable token across repeated probes, got %d then %d", first, second)
	}
}

func TestIdentityOfNotPresent(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not run /bin/true: %v", err)
	}
	pid := cmd.Process.Pid

	// Give the kernel a moment to reap; this PID should no longer have a
	// /proc entry now that the process has exited and been waited on.
	time.Sleep(10 * time.Millisecond)

	_, ok, err := IdentityOf(pid)
	if err != nil {
		t.Fatalf("IdentityOf on exited PID: %v", err)
	}
	if ok {
		t.Errorf("expected ok=false for exited PID %d", pid)
	}
}

func TestStartTimeOfSelfIsPastAndStable(t *testing.T) {
	first, ok := StartTime(os.Getpid())
	if !ok {
		t.Skip("could not read /proc/stat btime in this environment")
	}
	if first.After(time.Now()) {
		t.Errorf("expected start time in the past, got %v", first)
	}
	second, ok := StartTime(os.Getpid())
	if !ok {
		t.Fatal("second StartTime call unexpectedly failed")
	}
	if !first.Equal(second) {
		t.Errorf("expected stable start time across calls, got %v then %v", first, second)
	}
}

func TestSplitStatFieldsHandlesSpacesInCommand(t *testing.T) {
	line := "123 (my weird (proc) name) S 1 123 123 0 -1 4194304 " +
		"0 0 0 0 0 0 0 0 20 0 1 0 999"
	fields, err := splitStatFields(line)
	if err != nil {
		t.Fatalf("splitStatFields: %v", err)
	}
	if fields[0] != "123" {
		t.Errorf("expected pid field 123, got %q", fields[0])
	}
	if fields[1] != "my weird (proc) name" {
		t.Errorf("expected comm field to preserve inner parens, got %q", fields[1])
	}
	if got := fields[statField]; got != "999" {
		t.Errorf("expected start-time field 999, got %q", got)
	}
}
