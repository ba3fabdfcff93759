//go:build !linux

package resource

// MachineMemory returns 0 on platforms where it cannot be detected.
func MachineMemory() int64 {
	return 0
}
