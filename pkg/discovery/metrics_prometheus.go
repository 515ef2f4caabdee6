package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "lanscout"

var (
	descAttempts = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "method", "attempts_total"),
		"Completed discovery attempts per method.",
		[]string{"method"}, nil,
	)
	descSuccesses = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "method", "successes_total"),
		"Successful discovery attempts per method.",
		[]string{"method"}, nil,
	)
	descFailures = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "method", "failures_total"),
		"Failed discovery attempts per method.",
		[]string{"method"}, nil,
	)
	descSuccessRate = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "method", "success_rate"),
		"Fraction of successful attempts per method.",
		[]string{"method"}, nil,
	)
	descAvgDuration = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "method", "avg_duration_seconds"),
		"Average attempt duration per method.",
		[]string{"method"}, nil,
	)
	descDevicesFound = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "", "devices_found_total"),
		"Devices reported across all attempts.",
		nil, nil,
	)
	descCacheHits = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "hits_total"),
		"Sightings that matched a cached device.",
		nil, nil,
	)
	descCacheMisses = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "misses_total"),
		"Sightings of devices not yet cached.",
		nil, nil,
	)
	descCacheEvictions = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "evictions_total"),
		"Devices evicted from the cache.",
		nil, nil,
	)
	descCacheSize = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "size"),
		"Devices currently cached.",
		nil, nil,
	)
	descCacheMaxSize = prometheus.NewDesc(
		prometheus.BuildFQName(metricsNamespace, "cache", "max_size"),
		"Configured cache capacity.",
		nil, nil,
	)
)

var _ prometheus.Collector = (*MetricsCollector)(nil)

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descAttempts
	ch <- descSuccesses
	ch <- descFailures
	ch <- descSuccessRate
	ch <- descAvgDuration
	ch <- descDevicesFound
	ch <- descCacheHits
	ch <- descCacheMisses
	ch <- descCacheEvictions
	ch <- descCacheSize
	ch <- descCacheMaxSize
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	m := c.Metrics()

	for name, mm := range m.Methods {
		ch <- prometheus.MustNewConstMetric(descAttempts, prometheus.CounterValue, float64(mm.AttemptCount), name)
		ch <- prometheus.MustNewConstMetric(descSuccesses, prometheus.CounterValue, float64(mm.SuccessCount), name)
		ch <- prometheus.MustNewConstMetric(descFailures, prometheus.CounterValue, float64(mm.FailureCount), name)
		ch <- prometheus.MustNewConstMetric(descSuccessRate, prometheus.GaugeValue, mm.SuccessRate, name)
		ch <- prometheus.MustNewConstMetric(descAvgDuration, prometheus.GaugeValue, mm.AvgDuration.Seconds(), name)
	}

	ch <- prometheus.MustNewConstMetric(descDevicesFound, prometheus.CounterValue, float64(m.TotalDevicesFound))
	ch <- prometheus.MustNewConstMetric(descCacheHits, prometheus.CounterValue, float64(m.Cache.Hits))
	ch <- prometheus.MustNewConstMetric(descCacheMisses, prometheus.CounterValue, float64(m.Cache.Misses))
	ch <- prometheus.MustNewConstMetric(descCacheEvictions, prometheus.CounterValue, float64(m.Cache.Evictions))
	ch <- prometheus.MustNewConstMetric(descCacheSize, prometheus.GaugeValue, float64(m.Cache.CurrentSize))
	ch <- prometheus.MustNewConstMetric(descCacheMaxSize, prometheus.GaugeValue, float64(m.Cache.MaxSize))
}
