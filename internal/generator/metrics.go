package generator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpgforge_generations_total",
			Help: "Total number of generated records by content type and source.",
		},
		[]string{"content_type", "source"},
	)
	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpgforge_fallbacks_total",
			Help: "Total number of fallback generations by content type and reason.",
		},
		[]string{"content_type", "reason"},
	)
	sectionRegenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpgforge_section_regenerations_total",
			Help: "Total number of regenerated sections.",
		},
		[]string{"content_type", "section", "source"},
	)
)
