package http

import (
	"bufio"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
)

var (
	appStartedAtUnix = time.Now().Unix()
	inFlightRequests int64
	feedClients      int64
	metricsMu        sync.Mutex
	httpSeries       = map[httpMetricKey]*durationSeries{}
	upstreamSeries   = map[upstreamMetricKey]*durationSeries{}
	cycleSeries      = map[cycleMetricKey]*durationSeries{}
	renderSeries     = map[string]uint64{}
)

type httpMetricKey struct {
	Method string
	Path   string
	Status string
}

type upstreamMetricKey struct {
	Target    string
	Operation string
}

type cycleMetricKey struct {
	Operation string
	Outcome   string
}

type durationSeries struct {
	Count              uint64
	Errors             uint64
	DurationSecondsSum float64
}

func (s *durationSeries) observe(durationSeconds float64, err error) {
	s.Count++
	s.DurationSecondsSum += durationSeconds
	if err != nil {
		s.Errors++
	}
}

func metricsHandler() nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		writeMetrics(w)
	})
}

func writeMetrics(w io.Writer) {
	metricsMu.Lock()
	httpKeys := sortedKeys(httpSeries, func(a, b httpMetricKey) bool {
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Status < b.Status
	})
	httpSnap := snapshotSeries(httpSeries, httpKeys)

	upKeys := sortedKeys(upstreamSeries, func(a, b upstreamMetricKey) bool {
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Operation < b.Operation
	})
	upSnap := snapshotSeries(upstreamSeries, upKeys)

	cycleKeys := sortedKeys(cycleSeries, func(a, b cycleMetricKey) bool {
		if a.Operation != b.Operation {
			return a.Operation < b.Operation
		}
		return a.Outcome < b.Outcome
	})
	cycleSnap := snapshotSeries(cycleSeries, cycleKeys)

	phases := make([]string, 0, len(renderSeries))
	for p := range renderSeries {
		phases = append(phases, p)
	}
	sort.Strings(phases)
	renderSnap := make([]uint64, 0, len(phases))
	for _, p := range phases {
		renderSnap = append(renderSnap, renderSeries[p])
	}
	metricsMu.Unlock()

	_, _ = fmt.Fprintln(w, "# HELP proctable_http_requests_total Total HTTP requests handled by the viewer.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_http_requests_total counter")
	for i, k := range httpKeys {
		_, _ = fmt.Fprintf(w, "proctable_http_requests_total{method=%q,path=%q,status=%q} %d\n",
			escapeLabel(k.Method), escapeLabel(k.Path), escapeLabel(k.Status), httpSnap[i].Count)
	}
	_, _ = fmt.Fprintln(w, "# HELP proctable_http_request_duration_seconds_sum Total duration in seconds for observed requests.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_http_request_duration_seconds_sum counter")
	for i, k := range httpKeys {
		_, _ = fmt.Fprintf(w, "proctable_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %.9f\n",
			escapeLabel(k.Method), escapeLabel(k.Path), escapeLabel(k.Status), httpSnap[i].DurationSecondsSum)
	}
	_, _ = fmt.Fprintln(w, "# HELP proctable_http_in_flight_requests In-flight HTTP requests currently served by the viewer.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_http_in_flight_requests gauge")
	_, _ = fmt.Fprintf(w, "proctable_http_in_flight_requests %d\n", atomic.LoadInt64(&inFlightRequests))

	_, _ = fmt.Fprintln(w, "# HELP proctable_upstream_calls_total Calls to the process backend by target/operation.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_upstream_calls_total counter")
	for i, k := range upKeys {
		_, _ = fmt.Fprintf(w, "proctable_upstream_calls_total{target=%q,operation=%q} %d\n",
			escapeLabel(k.Target), escapeLabel(k.Operation), upSnap[i].Count)
	}
	_, _ = fmt.Fprintln(w, "# HELP proctable_upstream_errors_total Failed calls to the process backend by target/operation.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_upstream_errors_total counter")
	for i, k := range upKeys {
		_, _ = fmt.Fprintf(w, "proctable_upstream_errors_total{target=%q,operation=%q} %d\n",
			escapeLabel(k.Target), escapeLabel(k.Operation), upSnap[i].Errors)
	}
	_, _ = fmt.Fprintln(w, "# HELP proctable_upstream_duration_seconds_sum Backend call duration sum in seconds by target/operation.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_upstream_duration_seconds_sum counter")
	for i, k := range upKeys {
		_, _ = fmt.Fprintf(w, "proctable_upstream_duration_seconds_sum{target=%q,operation=%q} %.9f\n",
			escapeLabel(k.Target), escapeLabel(k.Operation), upSnap[i].DurationSecondsSum)
	}

	_, _ = fmt.Fprintln(w, "# HELP proctable_cycles_total Display and generation cycles by operation/outcome.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_cycles_total counter")
	for i, k := range cycleKeys {
		_, _ = fmt.Fprintf(w, "proctable_cycles_total{operation=%q,outcome=%q} %d\n",
			escapeLabel(k.Operation), escapeLabel(k.Outcome), cycleSnap[i].Count)
	}
	_, _ = fmt.Fprintln(w, "# HELP proctable_cycle_duration_seconds_sum Cycle duration sum in seconds by operation/outcome.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_cycle_duration_seconds_sum counter")
	for i, k := range cycleKeys {
		_, _ = fmt.Fprintf(w, "proctable_cycle_duration_seconds_sum{operation=%q,outcome=%q} %.9f\n",
			escapeLabel(k.Operation), escapeLabel(k.Outcome), cycleSnap[i].DurationSecondsSum)
	}

	_, _ = fmt.Fprintln(w, "# HELP proctable_render_transitions_total Render state transitions by phase.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_render_transitions_total counter")
	for i, p := range phases {
		_, _ = fmt.Fprintf(w, "proctable_render_transitions_total{phase=%q} %d\n", escapeLabel(p), renderSnap[i])
	}

	_, _ = fmt.Fprintln(w, "# HELP proctable_feed_clients Connected live feed clients.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_feed_clients gauge")
	_, _ = fmt.Fprintf(w, "proctable_feed_clients %d\n", atomic.LoadInt64(&feedClients))

	uptime := time.Now().Unix() - appStartedAtUnix
	_, _ = fmt.Fprintln(w, "# HELP proctable_uptime_seconds Process uptime in seconds.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_uptime_seconds gauge")
	_, _ = fmt.Fprintf(w, "proctable_uptime_seconds %d\n", uptime)

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	_, _ = fmt.Fprintln(w, "# HELP proctable_runtime_goroutines Number of goroutines.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_runtime_goroutines gauge")
	_, _ = fmt.Fprintf(w, "proctable_runtime_goroutines %d\n", runtime.NumGoroutine())
	_, _ = fmt.Fprintln(w, "# HELP proctable_runtime_memory_alloc_bytes Heap allocation bytes.")
	_, _ = fmt.Fprintln(w, "# TYPE proctable_runtime_memory_alloc_bytes gauge")
	_, _ = fmt.Fprintf(w, "proctable_runtime_memory_alloc_bytes %d\n", ms.Alloc)

	if cpuSec, ok := processCPUSeconds(); ok {
		_, _ = fmt.Fprintln(w, "# HELP proctable_runtime_cpu_seconds_total Total CPU time consumed by this process in seconds.")
		_, _ = fmt.Fprintln(w, "# TYPE proctable_runtime_cpu_seconds_total counter")
		_, _ = fmt.Fprintf(w, "proctable_runtime_cpu_seconds_total %.6f\n", cpuSec)
	}
}

func sortedKeys[K comparable](m map[K]*durationSeries, less func(a, b K) bool) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

func snapshotSeries[K comparable](m map[K]*durationSeries, keys []K) []durationSeries {
	out := make([]durationSeries, 0, len(keys))
	for _, k := range keys {
		out = append(out, *m[k])
	}
	return out
}

type statusRecorder struct {
	nethttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade take over a recorded connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(nethttp.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = nethttp.StatusSwitchingProtocols
	return hj.Hijack()
}

func observabilityMiddleware(router *mux.Router, next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		atomic.AddInt64(&inFlightRequests, 1)
		defer atomic.AddInt64(&inFlightRequests, -1)

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)

		recordHTTPMetric(r.Method, routeTemplate(router, r), rec.status, time.Since(start).Seconds())
	})
}

// routeTemplate keeps label cardinality bounded to the registered routes.
func routeTemplate(router *mux.Router, r *nethttp.Request) string {
	var match mux.RouteMatch
	if router == nil || !router.Match(r, &match) || match.Route == nil {
		return "unmatched"
	}
	tpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}

func recordHTTPMetric(method, path string, status int, durationSeconds float64) {
	key := httpMetricKey{Method: method, Path: path, Status: strconv.Itoa(status)}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := httpSeries[key]
	if !ok {
		row = &durationSeries{}
		httpSeries[key] = row
	}
	row.observe(durationSeconds, nil)
}

func recordUpstreamCall(target, operation string, durationSeconds float64, err error) {
	if target == "" || operation == "" {
		return
	}
	key := upstreamMetricKey{Target: target, Operation: operation}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := upstreamSeries[key]
	if !ok {
		row = &durationSeries{}
		upstreamSeries[key] = row
	}
	row.observe(durationSeconds, err)
}

func recordCycle(operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	key := cycleMetricKey{Operation: operation, Outcome: outcome}
	metricsMu.Lock()
	defer metricsMu.Unlock()
	row, ok := cycleSeries[key]
	if !ok {
		row = &durationSeries{}
		cycleSeries[key] = row
	}
	row.observe(d.Seconds(), err)
}

func recordRenderTransition(phase string) {
	phase = strings.TrimSpace(phase)
	if phase == "" {
		phase = "unknown"
	}
	metricsMu.Lock()
	renderSeries[phase]++
	metricsMu.Unlock()
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}

func processCPUSeconds() (float64, bool) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	user := float64(ru.Utime.Sec) + (float64(ru.Utime.Usec) / 1_000_000.0)
	sys := float64(ru.Stime.Sec) + (float64(ru.Stime.Usec) / 1_000_000.0)
	return user + sys, true
}
