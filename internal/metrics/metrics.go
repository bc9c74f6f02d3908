// Package metrics 暴露分配引擎相关的 Prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mentionscope"

// Collector 分配会话指标；nil 接收者上的调用均为空操作
type Collector struct {
	overrides      *prometheus.CounterVec
	reconciles     prometheus.Counter
	commits        *prometheus.CounterVec
	activeKeywords prometheus.Gauge
	shareSum       prometheus.Gauge
}

// New 创建指标并注册到 reg（nil 时使用默认注册器）
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		overrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_overrides_total",
			Help:      "Manual share overrides by outcome.",
		}, []string{"outcome"}),
		reconciles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_reconciles_total",
			Help:      "Working set rebuilds after catalog changes.",
		}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocation_commits_total",
			Help:      "Allocation persistence attempts by result.",
		}, []string{"result"}),
		activeKeywords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allocation_active_keywords",
			Help:      "Active keywords in the working set.",
		}),
		shareSum: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allocation_share_sum",
			Help:      "Sum of active shares in the working set.",
		}),
	}
	reg.MustRegister(c.overrides, c.reconciles, c.commits, c.activeKeywords, c.shareSum)
	return c
}

// Override 记录一次单项调整（applied / noop / unknown）
func (c *Collector) Override(outcome string) {
	if c == nil {
		return
	}
	c.overrides.WithLabelValues(outcome).Inc()
}

// Reconcile 记录一次重建
func (c *Collector) Reconcile() {
	if c == nil {
		return
	}
	c.reconciles.Inc()
}

// Commit 记录一次持久化结果
func (c *Collector) Commit(err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.commits.WithLabelValues(result).Inc()
}

// WorkingSet 更新工作集状态
func (c *Collector) WorkingSet(active, sum int) {
	if c == nil {
		return
	}
	c.activeKeywords.Set(float64(active))
	c.shareSum.Set(float64(sum))
}
