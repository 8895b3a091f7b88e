package workload_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/workload"
)

type countingLocker struct {
	sync.Mutex
	locks int
}

func (l *countingLocker) Lock() {
	l.Mutex.Lock()
	l.locks++
}

var _ = Describe("Agent", func() {
	var (
		mockCtrl *gomock.Controller
		acc      *MockAccessor
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		acc = NewMockAccessor(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should verify every read against an MMU under pressure", func() {
		layout := vm.MakeLayoutBuilder().
			WithOffsetWidth(2).
			WithAddressWidth(8).
			WithNumFrames(6).
			MustBuild()
		comp := mmu.MakeBuilder().WithLayout(layout).Build("MMU")
		Expect(comp.Initialize()).To(Succeed())

		progress := NewMockProgressTracker(mockCtrl)
		progress.EXPECT().IncrementFinished(uint64(1)).Times(1000)

		locker := &countingLocker{}

		agent := workload.MakeBuilder().
			WithMaxAddress(layout.VirtualMemorySize()).
			WithReadLeft(500).
			WithWriteLeft(500).
			WithSeed(7).
			WithProgress(progress).
			WithLocker(locker).
			Build()

		Expect(agent.Run(comp)).To(Succeed())
		Expect(agent.ReadLeft).To(Equal(0))
		Expect(agent.WriteLeft).To(Equal(0))
		Expect(locker.locks).To(Equal(1000))
		Expect(comp.Stats().Evictions).To(BeNumerically(">", 0))
	})

	It("should be reproducible with the same seed", func() {
		run := func() map[uint64]vm.Word {
			comp := mmu.MakeBuilder().Build("MMU")
			Expect(comp.Initialize()).To(Succeed())

			agent := workload.MakeBuilder().
				WithMaxAddress(1024).
				WithReadLeft(0).
				WithWriteLeft(50).
				WithSeed(42).
				Build()
			Expect(agent.Run(comp)).To(Succeed())

			return agent.KnownMemValue
		}

		Expect(run()).To(Equal(run()))
	})

	It("should expect zero from addresses never written", func() {
		acc.EXPECT().Read(gomock.Any()).Return(vm.Word(0), nil).Times(3)

		agent := workload.MakeBuilder().
			WithReadLeft(3).
			WithWriteLeft(0).
			WithSeed(1).
			Build()

		Expect(agent.Run(acc)).To(Succeed())
	})

	It("should report a mismatch", func() {
		acc.EXPECT().Read(gomock.Any()).Return(vm.Word(12345), nil)

		agent := workload.MakeBuilder().
			WithReadLeft(1).
			WithWriteLeft(0).
			WithSeed(1).
			Build()

		err := agent.Run(acc)

		var mismatch *workload.MismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Expected).To(Equal(vm.Word(0)))
		Expect(mismatch.Actual).To(Equal(vm.Word(12345)))
	})

	It("should stop at the first failing access", func() {
		failure := errors.New("disk full")
		acc.EXPECT().Write(gomock.Any(), gomock.Any()).Return(failure)

		agent := workload.MakeBuilder().
			WithReadLeft(0).
			WithWriteLeft(10).
			WithSeed(1).
			Build()

		err := agent.Run(acc)

		Expect(err).To(MatchError(failure))
		Expect(agent.WriteLeft).To(Equal(10))
	})

	It("should stay within the address range", func() {
		acc.EXPECT().
			Write(gomock.Any(), gomock.Any()).
			DoAndReturn(func(vAddr uint64, _ vm.Word) error {
				Expect(vAddr).To(BeNumerically("<", 16))
				return nil
			}).
			Times(100)

		agent := workload.MakeBuilder().
			WithMaxAddress(16).
			WithReadLeft(0).
			WithWriteLeft(100).
			WithSeed(3).
			Build()

		Expect(agent.Run(acc)).To(Succeed())
	})

	It("should refuse an empty address range", func() {
		Expect(func() {
			workload.MakeBuilder().WithMaxAddress(0).Build()
		}).To(Panic())
	})
})
