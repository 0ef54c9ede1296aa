package sheets

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/infrastructure/telemetry"
)

// Reader loads the full plot list
type Reader interface {
	FetchPlots(ctx context.Context) ([]*plot.Plot, error)
}

// Metrics records spreadsheet round-trips
type Metrics interface {
	RecordRequest(ctx context.Context, operation string, duration time.Duration, err error)
	RecordPlots(ctx context.Context, operation string, count int)
}

type nopMetrics struct{}

func (nopMetrics) RecordRequest(context.Context, string, time.Duration, error) {}
func (nopMetrics) RecordPlots(context.Context, string, int)                    {}

// Gateway is the remote store used by the plot service. Reads go through
// the configured reader, writes and connection tests through the web app.
type Gateway struct {
	client  *AppsScriptClient
	reader  Reader
	metrics Metrics
	logger  *zap.Logger
}

// NewGateway creates a gateway. A nil reader reads through the web app; nil
// metrics are discarded.
func NewGateway(client *AppsScriptClient, reader Reader, metrics Metrics, logger *zap.Logger) *Gateway {
	if reader == nil {
		reader = client
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Gateway{client: client, reader: reader, metrics: metrics, logger: logger}
}

// NewGatewayFromConfig builds the web app client and, in api read mode, the
// Sheets API reader.
func NewGatewayFromConfig(ctx context.Context, cfg Config, metrics Metrics, logger *zap.Logger) (*Gateway, error) {
	client := NewAppsScriptClient(cfg, logger.Named("appsscript"))
	var reader Reader
	if cfg.ReadMode == ReadModeAPI {
		r, err := NewAPIReader(ctx, cfg, logger.Named("sheetsapi"))
		if err != nil {
			return nil, err
		}
		reader = r
	}
	return NewGateway(client, reader, metrics, logger), nil
}

// call runs one spreadsheet round-trip inside a client span and records its
// duration
func (g *Gateway) call(ctx context.Context, action string, fn func(context.Context) error, opts ...telemetry.SpanOption) error {
	opts = append(opts,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrAction, action),
	)
	ctx, span := telemetry.StartServiceSpan(ctx, "sheets", action, opts...)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	g.metrics.RecordRequest(ctx, action, time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	return nil
}

// FetchPlots reads every plot
func (g *Gateway) FetchPlots(ctx context.Context) ([]*plot.Plot, error) {
	var plots []*plot.Plot
	err := g.call(ctx, "fetch", func(ctx context.Context) error {
		var err error
		plots, err = g.reader.FetchPlots(ctx)
		if err == nil {
			telemetry.SetAttributes(trace.SpanFromContext(ctx), telemetry.SpanAttrPlotCount, len(plots))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	g.metrics.RecordPlots(ctx, "fetch", len(plots))
	return plots, nil
}

// SavePlot upserts one plot
func (g *Gateway) SavePlot(ctx context.Context, p *plot.Plot) error {
	err := g.call(ctx, "save", func(ctx context.Context) error {
		return g.client.SavePlot(ctx, p)
	},
		telemetry.WithAttribute(telemetry.SpanAttrPlotID, p.ID),
		telemetry.WithAttribute(telemetry.SpanAttrSurvey, string(p.SurveyNumber)),
	)
	if err == nil {
		g.metrics.RecordPlots(ctx, "save", 1)
	}
	return err
}

// TestConnection pings the web app
func (g *Gateway) TestConnection(ctx context.Context) (bool, error) {
	var ok bool
	err := g.call(ctx, "test", func(ctx context.Context) error {
		var err error
		ok, err = g.client.TestConnection(ctx)
		return err
	})
	return ok, err
}

// InitializeSheets creates the sheets and header rows
func (g *Gateway) InitializeSheets(ctx context.Context) error {
	err := g.call(ctx, "initialize", g.client.InitializeSheets)
	if err == nil {
		g.logger.Info("Google Sheets initialized")
	}
	return err
}

// PendingCallbacks returns the number of JSONP requests in flight
func (g *Gateway) PendingCallbacks() int {
	return g.client.PendingCallbacks()
}

// Configured reports whether the web app URL is set
func (g *Gateway) Configured() bool {
	return g.client.Configured()
}
