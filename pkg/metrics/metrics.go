// Package metrics 提供基于Prometheus的指标收集框架
//
// 核心概念：
// 1. Counter（计数器）：只增不减的累计值（借出总数、错误总数）
// 2. Gauge（仪表盘）：可增可减的瞬时值（在借副本数）
// 3. Histogram（直方图）：观测值的分布（借书耗时、清扫耗时，自动计算P50/P90/P99）
//
// 命名规范：
// - Counter以`_total`结尾（loans_issued_total）
// - Histogram以单位结尾（sweep_duration_seconds）
// - 避免高基数标签（不要用user_id/book_id做标签）
//
// 使用示例：
//
//	metrics.InitMetrics()
//	http.Handle("/metrics", promhttp.Handler())
//
//	// 业务代码中：
//	metrics.IncCounter(metrics.LoansIssuedTotal)
//	metrics.ObserveHistogram(metrics.SweepDuration, time.Since(start).Seconds())
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// initialized 标记是否已初始化（防止重复注册）
	initialized bool

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数（Counter）
	// 标签：method（GET/POST）、path（/api/v1/loans）、status（200/500）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时（Histogram）
	HTTPRequestDuration *prometheus.HistogramVec

	// 流通业务指标

	// LoansIssuedTotal 借出总数（Counter）
	LoansIssuedTotal prometheus.Counter

	// LoansRenewedTotal 续借总数（Counter）
	LoansRenewedTotal prometheus.Counter

	// LoansReturnedTotal 归还总数（Counter）
	// 标签：late（true/false）
	LoansReturnedTotal *prometheus.CounterVec

	// LoansRejectedTotal 借阅被拒总数（Counter）
	// 标签：reason（out_of_stock/ineligible/not_found）
	LoansRejectedTotal *prometheus.CounterVec

	// FinesAccruedCents 累计罚款金额（Counter，单位：分）
	FinesAccruedCents prometheus.Counter

	// FinesPaidTotal 罚款结清笔数（Counter）
	FinesPaidTotal prometheus.Counter

	// BorrowDuration 借书事务耗时（Histogram）
	BorrowDuration prometheus.Histogram

	// 逾期清扫指标

	// SweepRunsTotal 清扫执行总数（Counter）
	// 标签：result（success/partial_failure）
	SweepRunsTotal *prometheus.CounterVec

	// SweepTransitionsTotal 清扫转为逾期的借阅数（Counter）
	SweepTransitionsTotal prometheus.Counter

	// SweepDuration 单次清扫耗时（Histogram）
	SweepDuration prometheus.Histogram

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（Gauge）
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// 消息队列指标

	// EventsPublishedTotal 领域事件发布总数（Counter）
	// 标签：routing_key（loan.created/loan.overdue/...）、result（success/failure/rejected）
	EventsPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
//
// 必须在程序启动时调用一次，用于注册所有指标到全局Registry
// 说明：使用promauto.New*自动注册到默认Registry
func InitMetrics() {
	// 防止重复初始化
	if initialized {
		return
	}
	initialized = true

	// HTTP指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时分布",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	// 流通业务指标
	LoansIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loans_issued_total",
		Help: "成功借出的借阅总数",
	})

	LoansRenewedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loans_renewed_total",
		Help: "成功续借总数",
	})

	LoansReturnedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loans_returned_total",
			Help: "归还总数",
		},
		[]string{"late"},
	)

	LoansRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loans_rejected_total",
			Help: "借阅请求被拒总数",
		},
		[]string{"reason"},
	)

	FinesAccruedCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fines_accrued_cents",
		Help: "累计产生的罚款金额（分）",
	})

	FinesPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fines_paid_total",
		Help: "结清罚款的借阅笔数",
	})

	BorrowDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "borrow_duration_seconds",
		Help:    "借书事务耗时分布",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
	})

	// 清扫指标
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "逾期清扫执行总数",
		},
		[]string{"result"},
	)

	SweepTransitionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_transitions_total",
		Help: "清扫中转为逾期状态的借阅数",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "单次逾期清扫耗时分布",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 60},
	})

	// 熔断器指标
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	// 消息队列指标
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "领域事件发布总数",
		},
		[]string{"routing_key", "result"},
	)
}

// =========================================
// 辅助函数（带nil保护，未初始化时静默跳过）
// =========================================

// IncCounter 递增计数器
func IncCounter(counter prometheus.Counter) {
	if counter != nil {
		counter.Inc()
	}
}

// AddCounter 计数器增加指定值
func AddCounter(counter prometheus.Counter, value float64) {
	if counter != nil {
		counter.Add(value)
	}
}

// IncCounterVec 递增带标签的计数器
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	if counter != nil {
		counter.With(labels).Inc()
	}
}

// SetGaugeVec 设置带标签的仪表盘值
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	if gauge != nil {
		gauge.With(labels).Set(value)
	}
}

// ObserveHistogram 记录直方图观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	if histogram != nil {
		histogram.Observe(value)
	}
}

// ObserveHistogramVec 记录带标签的直方图观测值
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	if histogram != nil {
		histogram.With(labels).Observe(value)
	}
}
