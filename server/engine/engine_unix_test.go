//go:build unix

package engine

import (
	"syscall"
	"testing"
)

func TestEngineGetsOwnProcessGroup(t *testing.T) {
	h, _ := startFake(t, "hang")
	pgid, err := syscall.Getpgid(h.cmd.Process.Pid)
	if err != nil {
		t.Fatalf("getpgid: %v", err)
	}
	if pgid == syscall.Getpgrp() {
		t.Fatalf("engine shares the arbiter's process group %d", pgid)
	}
	if pgid != h.cmd.Process.Pid {
		t.Fatalf("engine pgid = %d, want its own pid %d", pgid, h.cmd.Process.Pid)
	}
}
