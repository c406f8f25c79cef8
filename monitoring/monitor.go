// Package monitoring turns a running simulation into a small HTTP server that
// reports its progress and lets a user pause and continue it.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/netsim/timing"
)

// A Controller is a simulation that can be paused between rounds.
type Controller interface {
	// Now returns the emulated time the simulation has reached.
	Now() timing.EmulatedTime
	Pause()
	Continue()
	IsPaused() bool
}

// An IdleReporter reports how long each processor waited for work.
type IdleReporter interface {
	IdleTimes() ([]time.Duration, error)
}

// A HostInspector exposes the state of simulated hosts.
type HostInspector interface {
	HostNames() []string

	// HostDetail returns a value describing the named host.
	HostDetail(name string) (any, bool)
}

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	sim        Controller
	processors IdleReporter
	hosts      HostInspector
	registry   *prometheus.Registry
	portNumber int
	logger     logrus.FieldLogger

	profileDuration time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger:          logrus.StandardLogger(),
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.WithField("port", portNumber).
			Warn("port not allowed for the monitoring server, using a random port")

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger logrus.FieldLogger) *Monitor {
	m.logger = logger
	return m
}

// RegisterSimulation registers the simulation to control.
func (m *Monitor) RegisterSimulation(c Controller) {
	m.sim = c
}

// RegisterProcessors registers where processor idle times come from.
func (m *Monitor) RegisterProcessors(r IdleReporter) {
	m.processors = r
}

// RegisterHosts registers where host details come from.
func (m *Monitor) RegisterHosts(h HostInspector) {
	m.hosts = h
}

// RegisterRegistry registers the Prometheus registry served on /metrics.
func (m *Monitor) RegisterRegistry(reg *prometheus.Registry) {
	m.registry = reg
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

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause).Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc("/api/continue", m.continueSim).Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/processors", m.listProcessors)
	r.HandleFunc("/api/processors/{id:[0-9]+}", m.processor)
	r.HandleFunc("/api/hosts", m.listHosts)
	r.HandleFunc("/api/host/{name}", m.hostDetail)
	r.HandleFunc("/api/profile", m.collectProfile)

	if m.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// StartServer starts the monitor as a web server and returns the port it
// listens on.
func (m *Monitor) StartServer() (int, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return 0, fmt.Errorf("monitor: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(os.Stderr,
		"Monitoring simulation with http://localhost:%d\n", port)

	router := m.Router()

	go func() {
		err := http.Serve(listener, router)
		if err != nil {
			m.logger.WithError(err).Error("monitoring server stopped")
		}
	}()

	return port, nil
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		m.logger.WithError(err).Debug("monitor response not written")
	}
}

func (m *Monitor) fail(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	fmt.Fprintf(w, "Error: %s", err)
}

func (m *Monitor) simulationOr503(w http.ResponseWriter) Controller {
	if m.sim == nil {
		m.fail(w, http.StatusServiceUnavailable,
			fmt.Errorf("no simulation registered"))
	}

	return m.sim
}

type stateRsp struct {
	Paused bool `json:"paused"`
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	sim := m.simulationOr503(w)
	if sim == nil {
		return
	}

	sim.Pause()
	m.writeJSON(w, stateRsp{Paused: sim.IsPaused()})
}

func (m *Monitor) continueSim(w http.ResponseWriter, _ *http.Request) {
	sim := m.simulationOr503(w)
	if sim == nil {
		return
	}

	sim.Continue()
	m.writeJSON(w, stateRsp{Paused: sim.IsPaused()})
}

type nowRsp struct {
	Now      float64   `json:"now"`
	Emulated time.Time `json:"emulated"`
	Paused   bool      `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	sim := m.simulationOr503(w)
	if sim == nil {
		return
	}

	now := sim.Now()
	m.writeJSON(w, nowRsp{
		Now:      now.SimulationTime().Seconds(),
		Emulated: now.Time(),
		Paused:   sim.IsPaused(),
	})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressSnapshot, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	memory, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

type processorRsp struct {
	ID          int     `json:"id"`
	IdleSeconds float64 `json:"idle_seconds"`
}

func (m *Monitor) idleTimes(w http.ResponseWriter) ([]time.Duration, bool) {
	if m.processors == nil {
		m.fail(w, http.StatusServiceUnavailable,
			fmt.Errorf("no processors registered"))
		return nil, false
	}

	idle, err := m.processors.IdleTimes()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return nil, false
	}

	return idle, true
}

func (m *Monitor) listProcessors(w http.ResponseWriter, _ *http.Request) {
	idle, ok := m.idleTimes(w)
	if !ok {
		return
	}

	rsp := make([]processorRsp, len(idle))
	for i, d := range idle {
		rsp[i] = processorRsp{ID: i, IdleSeconds: d.Seconds()}
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) processor(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		m.fail(w, http.StatusBadRequest, err)
		return
	}

	idle, ok := m.idleTimes(w)
	if !ok {
		return
	}

	if id >= len(idle) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Processor not found")

		return
	}

	m.writeJSON(w, processorRsp{ID: id, IdleSeconds: idle[id].Seconds()})
}

func (m *Monitor) hostInspectorOr503(w http.ResponseWriter) HostInspector {
	if m.hosts == nil {
		m.fail(w, http.StatusServiceUnavailable,
			fmt.Errorf("no hosts registered"))
	}

	return m.hosts
}

func (m *Monitor) listHosts(w http.ResponseWriter, _ *http.Request) {
	hosts := m.hostInspectorOr503(w)
	if hosts == nil {
		return
	}

	m.writeJSON(w, hosts.HostNames())
}

func (m *Monitor) hostDetail(w http.ResponseWriter, r *http.Request) {
	hosts := m.hostInspectorOr503(w)
	if hosts == nil {
		return
	}

	name := mux.Vars(r)["name"]

	detail, ok := hosts.HostDetail(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, "Host %s not found", name)

		return
	}

	buf := bytes.NewBuffer(nil)
	serializer := goseth.NewSerializer()
	serializer.SetRoot(detail)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(buf)
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

// collectProfile samples the CPU of the whole process for a while and
// returns the parsed profile.
func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		m.fail(w, http.StatusConflict, err)
		return
	}

	time.Sleep(m.profileDuration)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, prof)
}
