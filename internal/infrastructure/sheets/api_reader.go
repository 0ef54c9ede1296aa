package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/landplots/backend/internal/domain/plot"
)

// APIReader reads the spreadsheet through the Sheets API with an API key.
// It cannot write; saves always go through the web app.
type APIReader struct {
	cfg     Config
	service *sheetsapi.Service
	logger  *zap.Logger
	now     func() time.Time
}

// NewAPIReader creates a reader. Extra client options are appended after
// the API key, which lets tests point the reader at a fake endpoint.
func NewAPIReader(ctx context.Context, cfg Config, logger *zap.Logger, opts ...option.ClientOption) (*APIReader, error) {
	cfg = cfg.WithDefaults()
	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.APIEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.APIEndpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &APIReader{cfg: cfg, service: svc, logger: logger, now: time.Now}, nil
}

// ReadSheet returns the value grid of a whole sheet. A missing sheet reads
// as an error; an empty sheet as no rows.
func (r *APIReader) ReadSheet(ctx context.Context, name string) ([][]any, error) {
	resp, err := r.service.Spreadsheets.Values.Get(r.cfg.SpreadsheetID, name).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if resp.Values == nil {
		return [][]any{}, nil
	}
	return resp.Values, nil
}

// FetchPlots reads the three sheets concurrently and joins them
func (r *APIReader) FetchPlots(ctx context.Context) ([]*plot.Plot, error) {
	var plotRows, paymentRows, customerRows [][]any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		plotRows, err = r.ReadSheet(gctx, r.cfg.PlotsSheet)
		return err
	})
	g.Go(func() (err error) {
		paymentRows, err = r.ReadSheet(gctx, r.cfg.PaymentsSheet)
		return err
	})
	g.Go(func() (err error) {
		customerRows, err = r.ReadSheet(gctx, r.cfg.CustomersSheet)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	plots := PlotsFromRows(plotRows, paymentRows, customerRows, r.now())
	r.logger.Info("Read plots through the Sheets API", zap.Int("count", len(plots)))
	return plots, nil
}
