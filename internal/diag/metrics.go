package diag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 进程内私有注册表；构建结束时可导出为 textfile（node_exporter textfile collector 格式）。
// - suitetoc_op_total{comp,stage,result}
// - suitetoc_error_total{comp,code}
// - suitetoc_op_duration_ms{comp,stage}
// - suitetoc_tests_total{result}   result=indexed|failed|unplaced
var (
	registry = prometheus.NewRegistry()

	opTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "suitetoc_op_total",
		Help: "Operations by component, stage and result.",
	}, []string{"comp", "stage", "result"})

	errorTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "suitetoc_error_total",
		Help: "Errors by component and classification code.",
	}, []string{"comp", "code"})

	opDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "suitetoc_op_duration_ms",
		Help:    "Stage duration in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"comp", "stage"})

	testsTotal = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "suitetoc_tests_total",
		Help: "Tests seen during indexing by outcome.",
	}, []string{"result"})
)

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// IncTests 累加测试计数。
func IncTests(result string, n int) {
	if n <= 0 {
		return
	}
	testsTotal.WithLabelValues(result).Add(float64(n))
}

// Gatherer 暴露注册表（测试与嵌入方使用）。
func Gatherer() prometheus.Gatherer { return registry }

// WriteMetrics 以 Prometheus 文本格式原子写出全部指标。
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}
