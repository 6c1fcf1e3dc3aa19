package counter_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/psxsim/timing/counter"
)

func TestCounter(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Counter Suite")
}

var _ = Describe("Counter", func() {
	var c *counter.Counter

	BeforeEach(func() {
		c = counter.New()
	})

	It("should advance the global count on tick", func() {
		c.Tick(4)
		c.Tick(1)
		Expect(c.Cycles()).To(Equal(int64(5)))
	})

	It("should report elapsed cycles per device since the last sync", func() {
		c.Tick(10)
		Expect(c.SyncAndGetElapsedCycles(counter.DeviceDMA)).To(Equal(int64(10)))

		c.Tick(3)
		Expect(c.SyncAndGetElapsedCycles(counter.DeviceDMA)).To(Equal(int64(3)))
	})

	It("should keep device checkpoints independent", func() {
		c.Tick(6)
		Expect(c.SyncAndGetElapsedCycles(counter.DeviceCPU)).To(Equal(int64(6)))

		c.Tick(2)
		Expect(c.SyncAndGetElapsedCycles(counter.DeviceCPU)).To(Equal(int64(2)))
		Expect(c.SyncAndGetElapsedCycles(counter.DeviceDMA)).To(Equal(int64(8)))
	})

	It("should report zero when nothing elapsed", func() {
		c.Tick(5)
		c.SyncAndGetElapsedCycles(counter.DeviceGPU)
		Expect(c.SyncAndGetElapsedCycles(counter.DeviceGPU)).To(Equal(int64(0)))
	})
})
