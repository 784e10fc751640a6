package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "resumestudio",
			Subsystem: "export",
			Name:      "duration_seconds",
			Help:      "导出耗时分布（秒）。",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"engine", "outcome"},
	)

	exportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "resumestudio",
			Subsystem: "export",
			Name:      "failures_total",
			Help:      "按失败类型统计的导出失败次数。",
		},
		[]string{"kind"},
	)

	browsersInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "resumestudio",
			Subsystem: "export",
			Name:      "browser_instances_in_flight",
			Help:      "当前持有的无头浏览器实例数量。",
		},
	)
)

// ObserveExport 记录一次导出的耗时与结果。
func ObserveExport(engine, outcome string, elapsed time.Duration) {
	exportDuration.WithLabelValues(engine, outcome).Observe(elapsed.Seconds())
}

// ExportFailed 按失败类型计数。
func ExportFailed(kind string) {
	exportFailures.WithLabelValues(kind).Inc()
}

// BrowserAcquired 与 BrowserReleased 成对调用。
func BrowserAcquired() { browsersInFlight.Inc() }

func BrowserReleased() { browsersInFlight.Dec() }
