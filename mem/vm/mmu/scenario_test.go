package mmu

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/mem/physical"
	"github.com/sarchlab/pagesim/mem/swap"
	"github.com/sarchlab/pagesim/mem/vm"
)

var _ = Describe("MMU under frame pressure", func() {
	DescribeTable("should keep every written value",
		func(layout vm.Layout, numAccess int) {
			memory := physical.NewMemory(layout, swap.NewMemoryStore())
			mmu := MakeBuilder().
				WithLayout(layout).
				WithPhysicalMemory(memory).
				Build("MMU")
			Expect(mmu.Initialize()).To(Succeed())

			rng := rand.New(rand.NewSource(1))
			known := make(map[uint64]vm.Word)

			for i := 0; i < numAccess; i++ {
				addr := rng.Uint64() % layout.VirtualMemorySize()

				if rng.Intn(2) == 0 {
					value := vm.Word(rng.Int63())
					Expect(mmu.Write(addr, value)).To(Succeed())
					known[addr] = value

					continue
				}

				Expect(mmu.Read(addr)).To(Equal(known[addr]),
					"address 0x%x after %d accesses", addr, i)
			}

			for addr, value := range known {
				Expect(mmu.Read(addr)).To(Equal(value))
			}

			Expect(mmu.Stats().Evictions).To(BeNumerically(">", 0))
			Expect(len(mmu.Mappings())).
				To(BeNumerically("<", int(layout.NumFrames())))
		},
		Entry("two levels with room for two paths",
			vm.MakeLayoutBuilder().
				WithOffsetWidth(2).
				WithAddressWidth(6).
				WithNumFrames(6).
				MustBuild(),
			2000),
		Entry("the minimal pool of one path",
			vm.MakeLayoutBuilder().
				WithOffsetWidth(2).
				WithAddressWidth(6).
				WithNumFrames(3).
				MustBuild(),
			2000),
		Entry("a partially used root table",
			vm.MakeLayoutBuilder().
				WithOffsetWidth(3).
				WithAddressWidth(10).
				WithNumFrames(8).
				MustBuild(),
			3000),
		Entry("the default layout",
			vm.MakeLayoutBuilder().MustBuild(),
			5000),
	)

	It("should keep three pages whose paths cannot fit at once", func() {
		layout := vm.MakeLayoutBuilder().
			WithOffsetWidth(2).
			WithAddressWidth(6).
			WithNumFrames(5).
			MustBuild()
		mmu := MakeBuilder().WithLayout(layout).Build("MMU")
		Expect(mmu.Initialize()).To(Succeed())

		addrs := []uint64{0x00, 0x15, 0x2A, 0x3F}
		for i, addr := range addrs {
			Expect(mmu.Write(addr, vm.Word(100+i))).To(Succeed())
		}

		for i, addr := range addrs {
			Expect(mmu.Read(addr)).To(Equal(vm.Word(100 + i)))
		}

		Expect(mmu.Stats().Evictions).To(BeNumerically(">", 0))
	})
})
