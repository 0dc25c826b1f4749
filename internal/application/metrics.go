package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_signins_total",
		Help: "Sign-in attempts by outcome.",
	}, []string{"outcome"})

	lockOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_lock_operations_total",
		Help: "Edit lock operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	directoryLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_directory_lookups_total",
		Help: "Roster lookups served by the directory cache.",
	}, []string{"result"})
)

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return ErrorKind(err)
}
