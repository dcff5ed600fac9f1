package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	reg           *prom.Registry
	stageDuration *prom.HistogramVec
	pageDuration  prom.Histogram
	pageResults   *prom.CounterVec
	viewFetches   *prom.CounterVec
	siteDuration  prom.Histogram
	siteBuilds    *prom.CounterVec
	sitePages     prom.Gauge
}

// NewPrometheusRecorder registers the build collectors on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "staticblog",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual page build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		pageDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "staticblog",
			Name:      "page_build_duration_seconds",
			Help:      "Duration of a single page build",
			Buckets:   prom.DefBuckets,
		}),
		pageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "staticblog",
			Name:      "page_results_total",
			Help:      "Page build results by outcome",
		}, []string{"result"}),
		viewFetches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "staticblog",
			Name:      "view_fetches_total",
			Help:      "View-count fetches by outcome",
		}, []string{"outcome"}),
		siteDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "staticblog",
			Name:      "site_build_duration_seconds",
			Help:      "Duration of a full site generation",
			Buckets:   prom.DefBuckets,
		}),
		siteBuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "staticblog",
			Name:      "site_builds_total",
			Help:      "Site generations by outcome",
		}, []string{"outcome"}),
		sitePages: prom.NewGauge(prom.GaugeOpts{
			Namespace: "staticblog",
			Name:      "site_pages",
			Help:      "Number of post pages in the last successful build",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.pageDuration, pr.pageResults, pr.viewFetches,
		pr.siteDuration, pr.siteBuilds, pr.sitePages)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObservePageDuration(d time.Duration) {
	p.pageDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPageResult(result string) {
	p.pageResults.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncViewFetch(outcome ViewOutcome) {
	p.viewFetches.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveSiteBuild(d time.Duration, pages int, success bool) {
	p.siteDuration.Observe(d.Seconds())
	if success {
		p.siteBuilds.WithLabelValues("success").Inc()
		p.sitePages.Set(float64(pages))
		return
	}
	p.siteBuilds.WithLabelValues("failed").Inc()
}

// Handler exposes the recorder's registry over HTTP.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
