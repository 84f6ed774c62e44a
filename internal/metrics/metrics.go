package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamline_messages_posted_total",
			Help: "Total messages appended",
		},
		[]string{"type"}, // text, image, file
	)

	MessagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamline_messages_deleted_total",
			Help: "Total messages deleted",
		},
	)

	TypingWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamline_typing_writes_total",
			Help: "Total typing status writes that reached the store",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamline_ws_connections",
			Help: "Currently open websocket connections",
		},
	)

	FanoutSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teamline_fanout_subscriptions",
			Help: "Currently active channel subscriptions",
		},
	)

	FanoutDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamline_fanout_dropped_total",
			Help: "Subscriptions dropped because the consumer fell behind",
		},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamline_upload_bytes_total",
			Help: "Total attachment bytes written to storage",
		},
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "teamline_upload_duration_seconds",
			Help:    "Attachment upload duration",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)
