//go:build linux

package resource

import "golang.org/x/sys/unix"

// MachineMemory returns the total physical memory in bytes, or 0 if unknown.
func MachineMemory() int64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0
	}
	return int64(info.Totalram) * int64(info.Unit)
}
