//go:build !linux

package partition

// bindCPU is a no-op on platforms without a SCHED_SETAFFINITY
// equivalent wired up here; the original's processorid_t plan is
// Linux-specific tooling this port doesn't replicate elsewhere.
func bindCPU(cpu int) error {
	return nil
}
