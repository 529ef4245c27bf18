//go:build linux

package partition

import "golang.org/x/sys/unix"

// bindCPU pins the calling OS thread to cpu, the Linux implementation
// of §5's cpu_bind plan. Best-effort: any failure is returned to the
// caller for logging, never treated as fatal — cache affinity is a
// performance hint, not a correctness requirement.
func bindCPU(cpu int) error {
	if cpu < 0 {
		return nil
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
