package collector

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/frebib/jellyfin-exporter/jellyfin"
	"github.com/frebib/jellyfin-exporter/version"
)

// JellyfinCollector holds the last published values of every exported
// metric. Update writes a whole cycle at once and Collect reads it, so a
// scrape never observes a half-written cycle.
type JellyfinCollector struct {
	Logger *log.Entry
	client *jellyfin.JellyfinClient

	mu sync.RWMutex

	usersCount            prometheus.Gauge
	itemsCount            *prometheus.GaugeVec
	activeStreamsCount    *prometheus.GaugeVec
	directStreamsCount    prometheus.Gauge
	transcodeStreamsCount prometheus.Gauge
	streamsBandwidth      prometheus.Gauge

	exporterInfo        *prometheus.GaugeVec
	fetchErrors         *prometheus.CounterVec
	lastCollectDuration prometheus.Gauge
	lastCollectTime     prometheus.Gauge
}

func NewJellyfinCollector(c *jellyfin.JellyfinClient, namespace string, l *log.Entry) *JellyfinCollector {
	col := &JellyfinCollector{
		Logger: l,
		client: c,

		usersCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "users_count",
				Help:      "Count of user accounts",
			},
		),
		itemsCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "items_count",
				Help:      "Count of media items by type",
			},
			[]string{"type"},
		),
		activeStreamsCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_streams_count",
				Help:      "The number of streams currently playing, by user",
			},
			[]string{"user"},
		),
		directStreamsCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_streams_direct_count",
				Help:      "The number of streams which are currently being direct streamed",
			},
		),
		transcodeStreamsCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_streams_transcode_count",
				Help:      "The number of streams which are currently being transcoded",
			},
		),
		streamsBandwidth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "streams_bandwidth_bits",
				Help:      "The total bandwidth currently being streamed",
			},
		),

		exporterInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "exporter",
				Name:      "info",
				Help:      "Information about the exporter",
			},
			[]string{"version"},
		),
		fetchErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "exporter",
				Name:      "fetch_errors_total",
				Help:      "Number of failed requests to the Jellyfin API, by endpoint",
			},
			[]string{"endpoint"},
		),
		lastCollectDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "exporter",
				Name:      "last_collect_duration_seconds",
				Help:      "Duration of the last collection cycle",
			},
		),
		lastCollectTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "exporter",
				Name:      "last_collect_timestamp_seconds",
				Help:      "Unix time at which the last collection cycle finished",
			},
		),
	}

	col.exporterInfo.WithLabelValues(version.Version).Set(1)
	for _, e := range []string{jellyfin.EndpointUsers, jellyfin.EndpointItemCounts, jellyfin.EndpointSessions} {
		col.fetchErrors.WithLabelValues(e)
	}
	return col
}

func (c *JellyfinCollector) Describe(ch chan<- *prometheus.Desc) {
	c.usersCount.Describe(ch)
	c.itemsCount.Describe(ch)
	c.activeStreamsCount.Describe(ch)
	c.directStreamsCount.Describe(ch)
	c.transcodeStreamsCount.Describe(ch)
	c.streamsBandwidth.Describe(ch)
	c.exporterInfo.Describe(ch)
	c.fetchErrors.Describe(ch)
	c.lastCollectDuration.Describe(ch)
	c.lastCollectTime.Describe(ch)
}

func (c *JellyfinCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.usersCount.Collect(ch)
	c.itemsCount.Collect(ch)
	c.activeStreamsCount.Collect(ch)
	c.directStreamsCount.Collect(ch)
	c.transcodeStreamsCount.Collect(ch)
	c.streamsBandwidth.Collect(ch)
	c.exporterInfo.Collect(ch)
	c.fetchErrors.Collect(ch)
	c.lastCollectDuration.Collect(ch)
	c.lastCollectTime.Collect(ch)
}

// Update publishes the values of one collection cycle. Labelled series that
// are not part of v are removed.
func (c *JellyfinCollector) Update(v jellyfin.ServerMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.usersCount.Set(float64(v.Users))

	c.itemsCount.Reset()
	for _, i := range v.Items {
		c.itemsCount.WithLabelValues(i.Type).Set(float64(i.Count))
	}

	c.activeStreamsCount.Reset()
	for user, n := range v.Sessions.ActiveByUser {
		c.activeStreamsCount.WithLabelValues(user).Set(float64(n))
	}

	c.streamsBandwidth.Set(v.Sessions.Bandwidth)
	c.directStreamsCount.Set(float64(v.Sessions.Direct))
	c.transcodeStreamsCount.Set(float64(v.Sessions.Transcoded))

	for _, e := range v.FailedEndpoints {
		c.fetchErrors.WithLabelValues(e).Inc()
	}
}

// Refresh runs one collection cycle against the Jellyfin server. A cycle
// interrupted by ctx is discarded and the previous values stay published.
func (c *JellyfinCollector) Refresh(ctx context.Context) {
	start := time.Now()

	v := c.client.GetServerMetrics(ctx)
	if err := ctx.Err(); err != nil {
		c.Logger.WithError(err).Debug("Collection cycle cancelled, keeping previous values")
		return
	}
	c.Update(v)

	c.mu.Lock()
	c.lastCollectDuration.Set(time.Since(start).Seconds())
	c.lastCollectTime.SetToCurrentTime()
	c.mu.Unlock()

	c.Logger.WithFields(log.Fields{
		"users":    v.Users,
		"types":    len(v.Items),
		"active":   v.Sessions.Active,
		"failed":   v.FailedEndpoints,
		"duration": time.Since(start),
	}).Debug("Refreshed metrics")
}
