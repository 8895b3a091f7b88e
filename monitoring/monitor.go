// Package monitoring turns a running simulation into a web server so that the
// state of the MMUs can be inspected while the accesses are issued.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/pagesim/mem/vm/mmu"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the registered MMUs.
type Monitor struct {
	components  []*mmu.Comp
	portNumber  int
	openBrowser bool

	// lock serializes the accesses to the components. Whoever drives a
	// registered component must hold it.
	lock sync.Mutex

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithOpenBrowser makes the server open the monitoring page in the default
// browser once it starts.
func (m *Monitor) WithOpenBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// Locker returns the lock that must be held while a registered component is
// being accessed.
func (m *Monitor) Locker() sync.Locker {
	return &m.lock
}

// RegisterComponent register a component to be monitored.
func (m *Monitor) RegisterComponent(c *mmu.Comp) {
	m.components = append(m.components, c)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/layout/{name}", m.layout)
	r.HandleFunc("/api/stats/{name}", m.stats)
	r.HandleFunc("/api/pages/{name}", m.pages)
	r.HandleFunc("/api/frame/{name}/{index:[0-9]+}", m.frame)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server with a custom port if
// wanted. It returns the URL of the server.
func (m *Monitor) StartServer() string {
	http.Handle("/", m.router())

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err := http.Serve(listener, nil)
		dieOnErr(err)
	}()

	if m.openBrowser {
		err = browser.OpenURL(url + "/api/list_components")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open browser: %s\n", err)
		}
	}

	return url
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type layoutRsp struct {
	OffsetWidth       uint64 `json:"offset_width"`
	TablesDepth       uint64 `json:"tables_depth"`
	AddressWidth      uint64 `json:"address_width"`
	NumFrames         uint64 `json:"num_frames"`
	PageSize          uint64 `json:"page_size"`
	NumPages          uint64 `json:"num_pages"`
	VirtualMemorySize uint64 `json:"virtual_memory_size"`
	RAMSize           uint64 `json:"ram_size"`
}

func (m *Monitor) layout(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	l := component.Layout()

	writeJSON(w, layoutRsp{
		OffsetWidth:       l.OffsetWidth(),
		TablesDepth:       l.TablesDepth(),
		AddressWidth:      l.AddressWidth(),
		NumFrames:         l.NumFrames(),
		PageSize:          l.PageSize(),
		NumPages:          l.NumPages(),
		VirtualMemorySize: l.VirtualMemorySize(),
		RAMSize:           l.RAMSize(),
	})
}

func (m *Monitor) stats(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	m.lock.Lock()
	stats := component.Stats()
	m.lock.Unlock()

	writeJSON(w, stats)
}

func (m *Monitor) pages(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	m.lock.Lock()
	pages := component.Mappings()
	m.lock.Unlock()

	if pages == nil {
		writeJSON(w, []any{})
		return
	}

	writeJSON(w, pages)
}

func (m *Monitor) frame(w http.ResponseWriter, r *http.Request) {
	component := m.findComponentOr404(w, mux.Vars(r)["name"])
	if component == nil {
		return
	}

	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil || index >= component.Layout().NumFrames() {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: frame %s does not exist", mux.Vars(r)["index"])

		return
	}

	m.lock.Lock()
	words := component.Frame(index)
	m.lock.Unlock()

	writeJSON(w, words)
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) *mmu.Comp {
	var component *mmu.Comp

	for _, c := range m.components {
		if c.Name() == name {
			component = c
		}
	}

	if component == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Component not found"))
		dieOnErr(err)
	}

	return component
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
