package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTasksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ai_kanban",
		Subsystem: "consumer",
		Name:      "tasks_processed_total",
		Help:      "Tasks processed to completion.",
	})
	metricTasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ai_kanban",
		Subsystem: "consumer",
		Name:      "tasks_failed_total",
		Help:      "Tasks whose workflow execution failed.",
	})
	metricTasksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ai_kanban",
		Subsystem: "consumer",
		Name:      "tasks_skipped_total",
		Help:      "Tasks acknowledged without processing (duplicates, bad payloads, failed validation).",
	})
	metricProcessingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ai_kanban",
		Subsystem: "consumer",
		Name:      "task_processing_seconds",
		Help:      "Workflow execution duration per task.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
