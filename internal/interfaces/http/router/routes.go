package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/infrastructure/config"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/infrastructure/telemetry"
	"github.com/landplots/backend/internal/interfaces/http/handler"
	"github.com/landplots/backend/internal/interfaces/http/middleware"
)

// Handlers are the API endpoints mounted by RegisterAPI
type Handlers struct {
	Plots    *handler.PlotHandler
	Payments *handler.PaymentHandler
	Reports  *handler.ReportHandler
	Exports  *handler.ExportHandler
	Sync     *handler.SyncHandler
	System   *handler.SystemHandler
}

// EngineOptions configures the middleware chain built by NewEngine
type EngineOptions struct {
	Logger        *zap.Logger
	HTTP          config.HTTPConfig
	CORS          config.CORSConfig
	Tracing       middleware.TracingConfig
	MeterProvider *telemetry.MeterProvider
	Security      middleware.SecurityConfig
}

// NewEngine builds a gin engine with the standard middleware chain. Order
// matters: the request ID feeds the span attributes and the access log.
func NewEngine(opts EngineOptions) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(opts.Logger),
		middleware.RequestID(),
		middleware.Tracing(opts.Tracing),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(opts.Logger, "/health"),
		middleware.HTTPMetrics(opts.MeterProvider),
		middleware.SecureWithConfig(opts.Security),
		middleware.CORS(opts.CORS),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
	)
	return engine, nil
}

// RegisterAPI mounts the health check at the root and every API area
// under /api/v1.
func RegisterAPI(r *Router, h Handlers) {
	r.Engine().GET("/health", h.System.Health)

	r.Mount(
		Area{Prefix: "/plots", Routes: []Route{
			get("", h.Plots.List),
			post("", h.Plots.Create),
			get("/summary", h.Plots.Summary),
			get("/:id", h.Plots.Get),
			put("/:id", h.Plots.Update),
			patch("/:id/status", h.Plots.UpdateStatus),
			post("/:id/refresh", h.Plots.Refresh),
			get("/:id/payments", h.Payments.ForPlot),
			post("/:id/payments", h.Payments.Add),
		}},
		Area{Prefix: "/payments", Routes: []Route{
			get("", h.Payments.List),
			post("/validate", h.Payments.Validate),
		}},
		Area{Prefix: "/dashboard", Routes: []Route{
			get("", h.Plots.Dashboard),
		}},
		Area{Prefix: "/reports", Routes: []Route{
			post("/analytics", h.Reports.Analytics),
			get("/yearly/:year", h.Reports.Yearly),
			get("/trends", h.Reports.Trends),
		}},
		Area{Prefix: "/exports", Routes: []Route{
			get("/plots.csv", h.Exports.PlotsCSV),
			get("/plots.xlsx", h.Exports.PlotsXLSX),
			get("/payments.csv", h.Exports.PaymentsCSV),
			get("/payments.xlsx", h.Exports.PaymentsXLSX),
			get("/reports/:kind", h.Exports.Report),
			post("/:dataset", h.Exports.Archive),
		}},
		Area{Prefix: "/sync", Routes: []Route{
			get("/status", h.Sync.Status),
			post("/enable", h.Sync.Enable),
			post("/disable", h.Sync.Disable),
			post("/test", h.Sync.Test),
			post("/push", h.Sync.Push),
			post("/pull", h.Sync.Pull),
			post("/initialize", h.Sync.Initialize),
			get("/jobs", h.Sync.Jobs),
			get("/jobs/:id", h.Sync.Job),
		}},
		Area{Prefix: "/admin", Routes: []Route{
			post("/regenerate", h.Plots.Regenerate),
			remove("/plots", h.Plots.Clear),
		}},
	).Setup()
}
