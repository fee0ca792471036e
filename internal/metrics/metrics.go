// ============================================================================
// AI Demo Metrics - Prometheus 監控指標
// ============================================================================
//
// Package: internal/metrics
// 文件: metrics.go
// 功能: 收集並暴露任務編排與 LLM 呼叫的運行指標
//
// 指標分類:
//
//   1. 任務計數器 (Counter):
//      - tasks_created_total{kind}: 建立的任務總數
//      - tasks_completed_total: 已完成任務總數
//      - tasks_failed_total: 失敗任務總數
//      - function_points_degraded_total: 重試耗盡後降級的功能點總數
//
//   2. LLM 呼叫指標:
//      - llm_calls_total / llm_call_failures_total
//      - llm_call_duration_seconds: 呼叫延遲分佈
//
//   3. 狀態指標 (Gauge):
//      - tasks_running: 當前執行中任務數
//
// 所有方法對 nil Collector 安全，指標收集因此是可選裝配。
//
// ============================================================================

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector Prometheus 指標收集器
type Collector struct {
	registry *prometheus.Registry

	tasksCreated   *prometheus.CounterVec
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	tasksRunning   prometheus.Gauge

	llmCalls       prometheus.Counter
	llmFailures    prometheus.Counter
	llmLatency     prometheus.Histogram
	degradedPoints prometheus.Counter
}

// NewCollector 創建新的指標收集器，使用獨立的 prometheus.Registry
// 以避免測試中重複註冊
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		tasksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		}, []string{"kind"}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks_completed_total",
			Help: "Total number of tasks that reached completed state",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks_failed_total",
			Help: "Total number of tasks that reached failed state",
		}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasks_running",
			Help: "Number of tasks currently running",
		}),
		llmCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llm_calls_total",
			Help: "Total number of LLM gateway calls",
		}),
		llmFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llm_call_failures_total",
			Help: "Total number of failed LLM gateway calls",
		}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM gateway call latency distribution",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		degradedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "function_points_degraded_total",
			Help: "Function points that exhausted retries and degraded to a warning",
		}),
	}

	c.registry.MustRegister(
		c.tasksCreated,
		c.tasksCompleted,
		c.tasksFailed,
		c.tasksRunning,
		c.llmCalls,
		c.llmFailures,
		c.llmLatency,
		c.degradedPoints,
	)
	return c
}

// TaskCreated 記錄一次任務建立
func (c *Collector) TaskCreated(kind string) {
	if c == nil {
		return
	}
	c.tasksCreated.WithLabelValues(kind).Inc()
}

// TaskStarted 記錄任務進入執行中
func (c *Collector) TaskStarted() {
	if c == nil {
		return
	}
	c.tasksRunning.Inc()
}

// TaskCompleted 記錄任務完成
func (c *Collector) TaskCompleted() {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksCompleted.Inc()
}

// TaskFailed 記錄任務失敗
func (c *Collector) TaskFailed() {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksFailed.Inc()
}

// LLMCall 記錄一次 LLM 呼叫及其延遲
func (c *Collector) LLMCall(duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.llmCalls.Inc()
	c.llmLatency.Observe(duration.Seconds())
	if err != nil {
		c.llmFailures.Inc()
	}
}

// PointDegraded 記錄一個重試耗盡後降級的功能點
func (c *Collector) PointDegraded() {
	if c == nil {
		return
	}
	c.degradedPoints.Inc()
}

// Handler 返回 /metrics 端點的 HTTP handler
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
