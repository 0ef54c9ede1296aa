package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	paymentapp "github.com/landplots/backend/internal/application/payment"
	plotapp "github.com/landplots/backend/internal/application/plot"
	reportapp "github.com/landplots/backend/internal/application/report"
	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/infrastructure/logger"
	"github.com/landplots/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

const (
	soldID      = "152/1-1-1700000000000"
	availableID = "152/1-2-1700000000000"
	bookedID    = "152/2-5-1700000000000"
)

// fakeRemote stands in for the Apps Script middleware
type fakeRemote struct {
	mu        sync.Mutex
	plots     []*plot.Plot
	fetchErr  error
	saved     []string
	connected bool
	connErr   error
}

func (f *fakeRemote) FetchPlots(context.Context) ([]*plot.Plot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]*plot.Plot, len(f.plots))
	for i, p := range f.plots {
		out[i] = p.Clone()
	}
	return out, nil
}

func (f *fakeRemote) SavePlot(_ context.Context, p *plot.Plot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, p.ID)
	return nil
}

func (f *fakeRemote) TestConnection(context.Context) (bool, error) {
	return f.connected, f.connErr
}

func (f *fakeRemote) setFetchErr(err error) {
	f.mu.Lock()
	f.fetchErr = err
	f.mu.Unlock()
}

func (f *fakeRemote) savedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.saved...)
}

func fixturePlots() []*plot.Plot {
	regDate := time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC)
	return []*plot.Plot{
		{
			ID:             soldID,
			SurveyNumber:   plot.Survey1521,
			PlotNumber:     "1",
			Dimensions:     plot.NewDimensions(20, 10),
			Status:         plot.StatusSold,
			Owner:          plot.OwnerJoint,
			RatePerSqMeter: decimal.NewFromInt(2500),
			TotalCost:      decimal.NewFromInt(500000),
			Purchaser:      &plot.Purchaser{Name: "Ramesh Patil", Mobile: "9876543210", RegistrationDate: regDate},
			Payments: []plot.Payment{{
				ID:     "PAY-1",
				Amount: decimal.NewFromInt(100000),
				Mode:   plot.PaymentModeUPI,
				Date:   time.Date(2023, 4, 12, 0, 0, 0, 0, time.UTC),
			}},
		},
		{
			ID:           availableID,
			SurveyNumber: plot.Survey1521,
			PlotNumber:   "2",
			Dimensions:   plot.NewDimensions(15, 10),
			Status:       plot.StatusAvailable,
			Owner:        plot.OwnerJoint,
			Payments:     []plot.Payment{},
		},
		{
			ID:           bookedID,
			SurveyNumber: plot.Survey1522,
			PlotNumber:   "5",
			Dimensions:   plot.NewDimensions(12, 10),
			Status:       plot.StatusPreBooked,
			Owner:        plot.OwnerBapurao,
			TotalCost:    decimal.NewFromInt(300000),
			Purchaser:    &plot.Purchaser{Name: "Sunita Deshmukh", Mobile: "9123456780"},
			Payments:     []plot.Payment{},
		},
	}
}

type testEnv struct {
	engine   *gin.Engine
	remote   *fakeRemote
	plots    *plotapp.PlotService
	payments *paymentapp.PaymentService
	reports  *reportapp.ReportsService
}

// newTestEnv loads the fixture plots through the fake spreadsheet and
// returns an engine matching on the raw path like the production router.
func newTestEnv(t *testing.T, opts ...plotapp.Option) *testEnv {
	t.Helper()

	remote := &fakeRemote{plots: fixturePlots(), connected: true}
	base := []plotapp.Option{
		plotapp.WithClock(func() time.Time { return testNow }),
		plotapp.WithBatchDelay(0),
	}
	plots := plotapp.NewPlotService(remote, append(base, opts...)...)
	if plots.SheetsEnabled() {
		_, err := plots.Load(context.Background())
		require.NoError(t, err)
	}

	engine := gin.New()
	engine.UseRawPath = true
	engine.UnescapePathValues = true
	engine.Use(func(c *gin.Context) {
		c.Set(logger.GinRequestIDKey, "test-request-id")
		c.Next()
	})

	return &testEnv{
		engine:   engine,
		remote:   remote,
		plots:    plots,
		payments: paymentapp.NewPaymentService(plots, zap.NewNop(), paymentapp.WithClock(func() time.Time { return testNow })),
		reports:  reportapp.NewReportsService(zap.NewNop()),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// plotPath escapes the id the way the frontend does
func plotPath(id string, suffix ...string) string {
	p := "/plots/" + url.PathEscape(id)
	for _, s := range suffix {
		p += s
	}
	return p
}

// decode unmarshals the envelope and its data into out
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()

	var env struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NotEmpty(t, env.Data, w.Body.String())
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env.Response
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode(t, w, nil)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}

var errRemoteDown = errors.New("apps script unreachable")

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
