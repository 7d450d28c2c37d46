package state

import "golang.org/x/sys/unix"

// ProcessAlive checks pid with signal 0. Any failure, including EPERM for a
// process owned by another user, counts as dead. Non-positive pids are dead
// because signal 0 to them addresses a process group.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
