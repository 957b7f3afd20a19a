//go:build !windows

package layout

import "os/exec"

func hideWindow(cmd *exec.Cmd) {}
