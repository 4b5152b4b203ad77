package axion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// fieldMapIntegrations counts field map integrations by regime and result.
	fieldMapIntegrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helioscope",
		Name:      "fieldmap_integrations_total",
		Help:      "Field map probability integrations by regime and result",
	}, []string{"regime", "result"})

	// fieldMapEvaluations counts field map samples taken by the integrand.
	fieldMapEvaluations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "helioscope",
		Name:      "fieldmap_integrand_evaluations_total",
		Help:      "Transverse field samples requested by field map integrations",
	})

	// fieldMapDuration tracks the wall time of one probability integration.
	fieldMapDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "helioscope",
		Name:      "fieldmap_integration_duration_seconds",
		Help:      "Field map probability integration duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 0.1ms to ~26s
	}, []string{"regime"})

	// scanPoints counts mass/density points emitted by scan planning.
	scanPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "helioscope",
		Name:      "scan_points_total",
		Help:      "Mass/density scan points emitted by gas",
	}, []string{"gas"})
)
