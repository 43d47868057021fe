package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var achievementsGranted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "benchclub",
		Subsystem: "gamification",
		Name:      "achievements_granted_total",
		Help:      "按徽章代码统计的授予总数。",
	},
	[]string{"code"},
)

// CountGrantedAchievement 记录一次徽章授予。
func CountGrantedAchievement(code string) {
	achievementsGranted.WithLabelValues(code).Inc()
}
