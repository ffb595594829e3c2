package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	reportStartedTotal   atomic.Uint64
	reportCompletedTotal atomic.Uint64
	reportFailedTotal    atomic.Uint64

	reportJobsReceived  atomic.Uint64
	reportJobsProcessed atomic.Uint64
	reportJobsFailed    atomic.Uint64

	routeDecisions = newLabeledCounter()
	toolCalls      = newLabeledCounter()
	agentErrors    = newLabeledCounter()
	llmCalls       = newLabeledCounter()

	reportDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	chatDuration   = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncReportStarted increments the started counter.
func IncReportStarted() {
	reportStartedTotal.Add(1)
}

// IncReportCompleted increments the completed counter.
func IncReportCompleted() {
	reportCompletedTotal.Add(1)
}

// IncReportFailed increments the failed counter.
func IncReportFailed() {
	reportFailedTotal.Add(1)
}

// IncReportJobsReceived counts queue messages picked up by a worker.
func IncReportJobsReceived() {
	reportJobsReceived.Add(1)
}

// IncReportJobsProcessed counts queue messages processed successfully.
func IncReportJobsProcessed() {
	reportJobsProcessed.Add(1)
}

// IncReportJobsFailed counts queue messages left for redelivery.
func IncReportJobsFailed() {
	reportJobsFailed.Add(1)
}

// ObserveReportDurationMs records a report duration in milliseconds.
func ObserveReportDurationMs(value float64) {
	reportDuration.Observe(clampNonNegative(value))
}

// ObserveChatDurationMs records an orchestrated answer duration in milliseconds.
func ObserveChatDurationMs(value float64) {
	chatDuration.Observe(clampNonNegative(value))
}

// IncRouteDecision counts orchestrator dispatches per route.
func IncRouteDecision(route string) {
	routeDecisions.Inc(route)
}

// IncToolCall counts agent tool invocations per tool.
func IncToolCall(tool string) {
	toolCalls.Inc(tool)
}

// IncAgentError counts agent failures per agent.
func IncAgentError(agent string) {
	agentErrors.Inc(agent)
}

// IncLLMCall counts LLM requests per model.
func IncLLMCall(model string) {
	llmCalls.Inc(model)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "report_started_total", "Total advisor reports started", reportStartedTotal.Load())
	writeCounter(&buf, "report_completed_total", "Total advisor reports completed", reportCompletedTotal.Load())
	writeCounter(&buf, "report_failed_total", "Total advisor reports failed", reportFailedTotal.Load())
	writeCounter(&buf, "report_jobs_received_total", "Report queue messages received", reportJobsReceived.Load())
	writeCounter(&buf, "report_jobs_processed_total", "Report queue messages processed", reportJobsProcessed.Load())
	writeCounter(&buf, "report_jobs_failed_total", "Report queue messages failed", reportJobsFailed.Load())
	writeLabeledCounter(&buf, "route_decisions_total", "Orchestrator dispatches by route", "route", routeDecisions.Snapshot())
	writeLabeledCounter(&buf, "tool_calls_total", "Agent tool invocations by tool", "tool", toolCalls.Snapshot())
	writeLabeledCounter(&buf, "agent_errors_total", "Agent failures by agent", "agent", agentErrors.Snapshot())
	writeLabeledCounter(&buf, "llm_calls_total", "LLM requests by model", "model", llmCalls.Snapshot())
	writeHistogram(&buf, "report_duration_ms", "Advisor report duration in milliseconds", reportDuration.Snapshot())
	writeHistogram(&buf, "chat_duration_ms", "Orchestrated answer duration in milliseconds", chatDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

type labeledCounter struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newLabeledCounter() *labeledCounter {
	return &labeledCounter{values: make(map[string]uint64)}
}

func (l *labeledCounter) Inc(label string) {
	if label == "" {
		label = "unknown"
	}
	l.mu.Lock()
	l.values[label]++
	l.mu.Unlock()
}

func (l *labeledCounter) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.values))
	for k, v := range l.values {
		out[k] = v
	}
	return out
}

func writeLabeledCounter(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// SinceMillis returns the elapsed time since start in milliseconds.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
