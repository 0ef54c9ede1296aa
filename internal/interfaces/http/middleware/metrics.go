package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/landplots/backend/internal/infrastructure/telemetry"
)

// unmatchedRoute labels requests that hit no route, so raw paths never
// become label values
const unmatchedRoute = "unmatched"

// Body sizes in bytes. The top buckets are XLSX exports of the full layout.
var bodySizeBuckets = []float64{128, 512, 2048, 8192, 32768, 131072, 524288, 2097152, 8388608}

type httpInstruments struct {
	requests  *telemetry.Counter
	latency   *telemetry.Histogram
	reqBytes  *telemetry.Histogram
	respBytes *telemetry.Histogram
	inFlight  metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var (
		in  httpInstruments
		err error
	)
	if in.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	histograms := []struct {
		dst  **telemetry.Histogram
		opts telemetry.HistogramOpts
	}{
		{&in.latency, telemetry.HistogramOpts{Name: "http_server_request_duration_seconds", Description: "HTTP request latency", Unit: "s", Boundaries: telemetry.HTTPDurationBuckets}},
		{&in.reqBytes, telemetry.HistogramOpts{Name: "http_server_request_size_bytes", Description: "HTTP request body size", Unit: "By", Boundaries: bodySizeBuckets}},
		{&in.respBytes, telemetry.HistogramOpts{Name: "http_server_response_size_bytes", Description: "HTTP response body size", Unit: "By", Boundaries: bodySizeBuckets}},
	}
	for _, h := range histograms {
		if *h.dst, err = telemetry.NewHistogram(meter, h.opts); err != nil {
			return nil, err
		}
	}
	in.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"), metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// HTTPMetrics meters every request while the meter provider exports and is
// a passthrough otherwise.
func HTTPMetrics(mp *telemetry.MeterProvider) gin.HandlerFunc {
	if mp == nil || !mp.IsEnabled() {
		return passthrough
	}
	return MeterHTTP(mp.Meter("http.server"))
}

// MeterHTTP records request count by method, route and status, latency and
// body sizes by method and route, and the in-flight gauge on meter.
func MeterHTTP(meter metric.Meter) gin.HandlerFunc {
	in, err := newHTTPInstruments(meter)
	if err != nil {
		return passthrough
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		in.inFlight.Add(ctx, 1)
		c.Next()
		in.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		in.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))...)
		in.latency.RecordDuration(ctx, time.Since(start), attrs...)
		if n := c.Request.ContentLength; n > 0 {
			in.reqBytes.Record(ctx, float64(n), attrs...)
		}
		if n := c.Writer.Size(); n > 0 {
			in.respBytes.Record(ctx, float64(n), attrs...)
		}
	}
}

func passthrough(c *gin.Context) {
	c.Next()
}
