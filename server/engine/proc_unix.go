//go:build unix

package engine

import (
	"os/exec"
	"syscall"
)

// detach puts the engine in its own process group so a terminal interrupt
// reaches only the arbiter, which then decides how to stop the game.
func detach(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
