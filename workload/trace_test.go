package workload_test

import (
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/sarchlab/pagesim/workload"
)

var _ = Describe("Trace", func() {
	Context("parsing", func() {
		It("should parse reads, writes and comments", func() {
			ops, err := workload.ParseTrace(strings.NewReader(`
# fill two pages
W 0x10 5
w 17 -3

R 0x10 5
R 0b10001
`))

			Expect(err).ToNot(HaveOccurred())
			Expect(ops).To(Equal([]workload.Op{
				{Line: 3, Kind: workload.OpWrite, VAddr: 0x10, Value: 5},
				{Line: 4, Kind: workload.OpWrite, VAddr: 17, Value: -3},
				{Line: 6, Kind: workload.OpRead, VAddr: 0x10, Value: 5, Check: true},
				{Line: 7, Kind: workload.OpRead, VAddr: 17},
			}))
		})

		DescribeTable("should reject malformed lines",
			func(line, message string) {
				_, err := workload.ParseTrace(strings.NewReader("R 1\n" + line))

				Expect(err).To(MatchError(ContainSubstring("line 2")))
				Expect(err).To(MatchError(ContainSubstring(message)))
			},
			Entry("unknown operation", "X 1 2", "unknown operation"),
			Entry("write without value", "W 1", "write needs"),
			Entry("read with too many fields", "R 1 2 3", "read needs"),
			Entry("bad address", "R zz", "bad address"),
			Entry("negative address", "R -1", "bad address"),
			Entry("bad value", "W 1 0xq", "bad value"),
		)
	})

	Context("replaying", func() {
		var comp *mmu.Comp

		BeforeEach(func() {
			layout := vm.MakeLayoutBuilder().
				WithOffsetWidth(2).
				WithAddressWidth(6).
				WithNumFrames(3).
				MustBuild()
			comp = mmu.MakeBuilder().WithLayout(layout).Build("MMU")
			Expect(comp.Initialize()).To(Succeed())
		})

		It("should survive page-outs", func() {
			ops, err := workload.ParseTrace(strings.NewReader(`
W 0x00 1
W 0x15 2
W 0x2A 3
W 0x3F 4
R 0x00 1
R 0x15 2
R 0x2A 3
R 0x3F 4
R 0x01
`))
			Expect(err).ToNot(HaveOccurred())

			res, err := workload.Replay(ops, comp)

			Expect(err).ToNot(HaveOccurred())
			Expect(res).To(Equal(workload.ReplayResult{
				Reads:    5,
				Writes:   4,
				Verified: 4,
				LastRead: 0,
			}))
			Expect(comp.Stats().Evictions).To(BeNumerically(">", 0))
		})

		It("should stop at the first unexpected value", func() {
			ops := []workload.Op{
				{Line: 1, Kind: workload.OpWrite, VAddr: 3, Value: 9},
				{Line: 2, Kind: workload.OpRead, VAddr: 3, Value: 8, Check: true},
				{Line: 3, Kind: workload.OpWrite, VAddr: 4, Value: 1},
			}

			res, err := workload.Replay(ops, comp)

			var mismatch *workload.MismatchError
			Expect(errors.As(err, &mismatch)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("line 2")))
			Expect(mismatch.Actual).To(Equal(vm.Word(9)))
			Expect(res.Writes).To(Equal(1))
			Expect(res.Reads).To(Equal(1))
		})

		It("should report addresses outside the virtual memory", func() {
			ops := []workload.Op{
				{Line: 5, Kind: workload.OpWrite, VAddr: 64, Value: 1},
			}

			_, err := workload.Replay(ops, comp)

			Expect(err).To(MatchError(mmu.ErrAddressOutOfRange))
			Expect(err).To(MatchError(ContainSubstring("line 5")))
		})
	})
})
