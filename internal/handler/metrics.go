package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generateRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_server_generate_requests_total",
			Help: "Total number of generate requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	storyOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_server_story_operations_total",
			Help: "Total number of story save/delete operations by status.",
		},
		[]string{"operation", "status"},
	)
)
