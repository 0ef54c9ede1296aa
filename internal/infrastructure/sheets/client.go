package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/plot"
)

const (
	maxErrorBody    = 1 << 20
	maxResponseBody = 25 << 20
	callbackPrefix  = "sheetsCallback_"
	base36          = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// ErrTimeout is returned when the web app does not answer in time
var ErrTimeout = errors.New("sheets: request timed out")

// RemoteError is a response with success=false
type RemoteError struct {
	Action  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sheets: %s failed: %s", e.Action, e.Message)
}

// AppsScriptClient calls the Apps Script web app. Reads and plot saves are
// JSONP GET requests; each one registers a unique callback name that is
// removed when the request finishes, fails or times out.
type AppsScriptClient struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
	rnd     *rand.Rand
}

// ClientOption configures an AppsScriptClient
type ClientOption func(*AppsScriptClient)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(a *AppsScriptClient) {
		a.http = c
	}
}

// WithClientClock sets the time source for callback names and cache busting
func WithClientClock(now func() time.Time) ClientOption {
	return func(a *AppsScriptClient) {
		a.now = now
	}
}

// NewAppsScriptClient creates a client for the configured web app
func NewAppsScriptClient(cfg Config, logger *zap.Logger, opts ...ClientOption) *AppsScriptClient {
	cfg = cfg.WithDefaults()
	c := &AppsScriptClient{
		cfg:     cfg,
		http:    &http.Client{},
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]struct{}),
		rnd:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xda942042e4dd58b5)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether a web app URL is set
func (c *AppsScriptClient) Configured() bool {
	return c.cfg.WebAppURL != ""
}

// PendingCallbacks returns the number of JSONP requests in flight
func (c *AppsScriptClient) PendingCallbacks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *AppsScriptClient) newCallbackName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		b := make([]byte, 9)
		for i := range b {
			b[i] = base36[c.rnd.IntN(len(base36))]
		}
		name := callbackPrefix + strconv.FormatInt(c.now().UnixMilli(), 10) + "_" + string(b)
		if _, taken := c.pending[name]; !taken {
			c.pending[name] = struct{}{}
			return name
		}
	}
}

func (c *AppsScriptClient) releaseCallback(name string) {
	c.mu.Lock()
	delete(c.pending, name)
	c.mu.Unlock()
}

// TestConnection reports whether the web app answers the test action with
// success. An unconfigured client reports false.
func (c *AppsScriptClient) TestConnection(ctx context.Context) (bool, error) {
	if !c.Configured() {
		c.logger.Warn("Google Apps Script Web App URL not configured")
		return false, nil
	}
	params := url.Values{}
	params.Set("action", "test")
	params.Set("_t", strconv.FormatInt(c.now().UnixMilli(), 10))

	env, err := c.jsonp(ctx, "test", params)
	if err != nil {
		return false, err
	}
	return env.Success, nil
}

// FetchPlots reads every plot with its purchaser and payments. An
// unconfigured client returns no plots.
func (c *AppsScriptClient) FetchPlots(ctx context.Context) ([]*plot.Plot, error) {
	if !c.Configured() {
		c.logger.Warn("WebApp URL not configured, cannot read from Google Sheets")
		return []*plot.Plot{}, nil
	}
	params := url.Values{}
	params.Set("action", "getAllPlots")
	params.Set("spreadsheetId", c.cfg.SpreadsheetID)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.WebAppURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("getAllPlots: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("getAllPlots: decode response: %w", err)
	}
	if !env.Success {
		return nil, &RemoteError{Action: "getAllPlots", Message: env.Message}
	}

	var wire []wirePlot
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			return nil, fmt.Errorf("getAllPlots: decode plots: %w", err)
		}
	}

	now := c.now()
	plots := make([]*plot.Plot, 0, len(wire))
	for _, w := range wire {
		plots = append(plots, w.toDomain(now))
	}
	c.logger.Info("Fetched plots from Google Sheets", zap.Int("count", len(plots)))
	return plots, nil
}

// SavePlot upserts the plot row, its customer row and its payment rows.
// Payment rows of the plot that are not on it any more are removed by the
// web app. An unconfigured client logs and returns nil.
func (c *AppsScriptClient) SavePlot(ctx context.Context, p *plot.Plot) error {
	if !c.Configured() {
		c.logger.Warn("WebApp URL not configured, saving locally only", zap.String("plot_id", p.ID))
		return nil
	}
	data, err := json.Marshal(toOutPlot(p))
	if err != nil {
		return fmt.Errorf("savePlot: encode plot: %w", err)
	}
	params := url.Values{}
	params.Set("action", "savePlot")
	params.Set("plotData", string(data))
	params.Set("spreadsheetId", c.cfg.SpreadsheetID)

	env, err := c.jsonp(ctx, "savePlot", params)
	if err != nil {
		return err
	}
	if !env.Success {
		return &RemoteError{Action: "savePlot", Message: env.Message}
	}
	return nil
}

// SavePayment posts a single payment row
func (c *AppsScriptClient) SavePayment(ctx context.Context, pm plot.Payment, plotID string) error {
	return c.post(ctx, "savePayment", map[string]any{
		"payment":       toOutPayment(pm),
		"plotId":        plotID,
		"spreadsheetId": c.cfg.SpreadsheetID,
	})
}

// SaveCustomer posts the customer row of a plot
func (c *AppsScriptClient) SaveCustomer(ctx context.Context, purchaser *plot.Purchaser, plotID string) error {
	return c.post(ctx, "saveCustomer", map[string]any{
		"customer":      toOutPurchaser(purchaser),
		"plotId":        plotID,
		"spreadsheetId": c.cfg.SpreadsheetID,
	})
}

// InitializeSheets asks the web app to create missing sheets and headers
func (c *AppsScriptClient) InitializeSheets(ctx context.Context) error {
	return c.post(ctx, "initializeSheets", nil)
}

// jsonp performs a GET with a fresh callback and decodes the envelope
func (c *AppsScriptClient) jsonp(ctx context.Context, action string, params url.Values) (*envelope, error) {
	callback := c.newCallbackName()
	defer c.releaseCallback(callback)
	params.Set("callback", callback)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.WebAppURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		c.logger.Warn("Google Apps Script request failed",
			zap.String("action", action),
			zap.String("callback", callback),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	payload, err := UnwrapJSONP(body, callback)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", action, err)
	}
	return &env, nil
}

// post sends {action, data} as JSON
func (c *AppsScriptClient) post(ctx context.Context, action string, data any) error {
	if !c.Configured() {
		c.logger.Warn("WebApp URL not configured, skipping Google Sheets save", zap.String("action", action))
		return nil
	}
	payload := map[string]any{"action": action}
	if data != nil {
		payload["data"] = data
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", action, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebAppURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%s: decode response: %w", action, err)
	}
	if !env.Success {
		return &RemoteError{Action: action, Message: env.Message}
	}
	return nil
}

func (c *AppsScriptClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := string(bytes.TrimSpace(body))
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("status=%d: %s", resp.StatusCode, truncate([]byte(msg), 300))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		if errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
