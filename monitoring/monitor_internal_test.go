package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pagesim/mem/vm"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
)

var _ = Describe("Monitor", func() {
	var (
		m    *Monitor
		comp *mmu.Comp
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		layout := vm.MakeLayoutBuilder().
			WithOffsetWidth(1).
			WithAddressWidth(3).
			WithNumFrames(4).
			MustBuild()
		comp = mmu.MakeBuilder().WithLayout(layout).Build("MMU")
		Expect(comp.Initialize()).To(Succeed())

		m = NewMonitor()
		m.RegisterComponent(comp)
	})

	It("should register components", func() {
		Expect(m.components).To(ConsistOf(comp))

		rec := get("/api/list_components")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`["MMU"]`))
	})

	It("should replace low port numbers with a random port", func() {
		Expect(m.WithPortNumber(80).portNumber).To(Equal(0))
		Expect(m.WithPortNumber(8080).portNumber).To(Equal(8080))
	})

	It("should hand out the component lock", func() {
		Expect(m.Locker()).To(BeIdenticalTo(&m.lock))
	})

	It("should report 404 for unknown components", func() {
		rec := get("/api/stats/Nothing")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should report the layout", func() {
		rec := get("/api/layout/MMU")

		Expect(rec.Body.String()).To(MatchJSON(`{
			"offset_width": 1,
			"tables_depth": 2,
			"address_width": 3,
			"num_frames": 4,
			"page_size": 2,
			"num_pages": 4,
			"virtual_memory_size": 8,
			"ram_size": 8
		}`))
	})

	It("should report statistics, pages and frames", func() {
		Expect(comp.Write(5, 42)).To(Succeed())

		Expect(get("/api/stats/MMU").Body.String()).To(MatchJSON(`{
			"reads": 0,
			"writes": 1,
			"faults": 2,
			"empty_tables_reused": 0,
			"unused_frames_taken": 2,
			"evictions": 0
		}`))

		var pages []vm.Page
		err := json.Unmarshal(get("/api/pages/MMU").Body.Bytes(), &pages)
		Expect(err).ToNot(HaveOccurred())
		Expect(pages).To(Equal([]vm.Page{vm.MakePage(comp.Layout(), 2, 2)}))

		Expect(get("/api/frame/MMU/2").Body.String()).To(MatchJSON(`[0, 42]`))
	})

	It("should list no pages after initialization", func() {
		Expect(get("/api/pages/MMU").Body.String()).To(MatchJSON(`[]`))
	})

	It("should reject frames outside physical memory", func() {
		rec := get("/api/frame/MMU/4")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serialize the component", func() {
		rec := get("/api/component/MMU")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should report process resources", func() {
		rec := get("/api/resource")

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	Context("progress bars", func() {
		It("should list the bars that are not completed", func() {
			bar1 := m.CreateProgressBar("Random", 10)
			bar2 := m.CreateProgressBar("Replay", 5)

			bar1.IncrementInProgress(4)
			bar1.MoveInProgressToFinished(3)
			bar2.IncrementFinished(5)
			m.CompleteProgressBar(bar2)

			var bars []map[string]any
			err := json.Unmarshal(get("/api/progress").Body.Bytes(), &bars)
			Expect(err).ToNot(HaveOccurred())

			Expect(bars).To(HaveLen(1))
			Expect(bars[0]).To(HaveKeyWithValue("id", bar1.ID))
			Expect(bars[0]).To(HaveKeyWithValue("name", "Random"))
			Expect(bars[0]).To(HaveKeyWithValue("total", BeNumerically("==", 10)))
			Expect(bars[0]).To(HaveKeyWithValue("finished", BeNumerically("==", 3)))
			Expect(bars[0]).To(
				HaveKeyWithValue("in_progress", BeNumerically("==", 1)))
		})

		It("should give bars unique ids", func() {
			bar1 := m.CreateProgressBar("A", 1)
			bar2 := m.CreateProgressBar("B", 1)

			Expect(bar1.ID).ToNot(Equal(bar2.ID))
		})
	})
})
