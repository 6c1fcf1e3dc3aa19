// Package counter provides the shared cycle clock for the emulated system.
//
// There is one monotonic cycle count. Each device keeps a checkpoint of
// the count at its last synchronization point, so whichever device runs
// "spends" cycles that become visible to the others the next time they
// synchronize. The model is strictly single-threaded and cooperative, so
// no locking is involved.
package counter

// Device identifies a component that synchronizes against the clock.
type Device int

const (
	DeviceCPU Device = iota
	DeviceDMA
	DeviceGPU

	numDevices
)

// Counter is the process-wide cycle clock.
type Counter struct {
	cycles   int64
	lastSync [numDevices]int64
}

// New returns a counter at cycle zero with all devices synchronized.
func New() *Counter {
	return &Counter{}
}

// Tick advances the global cycle count by n.
func (c *Counter) Tick(n int64) {
	c.cycles += n
}

// Cycles returns the current global cycle count.
func (c *Counter) Cycles() int64 {
	return c.cycles
}

// SyncAndGetElapsedCycles returns the cycles elapsed since the device's
// last synchronization point and moves that checkpoint to the current
// count.
func (c *Counter) SyncAndGetElapsedCycles(d Device) int64 {
	elapsed := c.cycles - c.lastSync[d]
	c.lastSync[d] = c.cycles
	return elapsed
}
