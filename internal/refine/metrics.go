package refine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	backendTemplate = "template"
	backendGemini   = "gemini"
)

var refinementsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "studio",
		Subsystem: "refine",
		Name:      "calls_total",
		Help:      "Refinement and chat-reply calls by backend and result.",
	},
	[]string{"backend", "result"},
)

func observe(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	refinementsTotal.WithLabelValues(backend, result).Inc()
}
