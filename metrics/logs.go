package metrics

import (
	"github.com/safing/portsync/log"
)

func init() {
	set.NewGauge(ID("logs_total", Labels{"level": "warning"}), func() float64 {
		return float64(log.TotalWarningLogLines())
	})
	set.NewGauge(ID("logs_total", Labels{"level": "error"}), func() float64 {
		return float64(log.TotalErrorLogLines())
	})
	set.NewGauge(ID("logs_total", Labels{"level": "critical"}), func() float64 {
		return float64(log.TotalCriticalLogLines())
	})
}
