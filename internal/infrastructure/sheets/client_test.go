package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/plot"
)

// fakeWebApp mimics the Apps Script web app
type fakeWebApp struct {
	mu        sync.Mutex
	requests  []*http.Request
	posts     []map[string]any
	savedPlot map[string]any
	response  map[string]any
	// callbackOverride answers with another callback name when set
	callbackOverride string
	block            bool
}

func (f *fakeWebApp) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	block := f.block
	f.mu.Unlock()

	if block {
		<-r.Context().Done()
		return
	}

	if r.Method == http.MethodPost {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.posts = append(f.posts, body)
		f.mu.Unlock()
		f.write(w, "", f.resp(true, "ok", nil))
		return
	}

	q := r.URL.Query()
	var resp map[string]any
	switch q.Get("action") {
	case "test":
		resp = f.resp(true, "Google Apps Script Web App is working correctly", map[string]any{"version": "1.0"})
	case "getAllPlots":
		resp = f.resp(true, "Plots retrieved successfully", []any{})
	case "savePlot":
		var data map[string]any
		_ = json.Unmarshal([]byte(q.Get("plotData")), &data)
		f.mu.Lock()
		f.savedPlot = data
		f.mu.Unlock()
		resp = f.resp(true, "Plot saved successfully via GET request", map[string]any{"plotId": data["id"]})
	default:
		resp = f.resp(false, "Invalid GET action: "+q.Get("action"), nil)
	}

	callback := q.Get("callback")
	if f.callbackOverride != "" {
		callback = f.callbackOverride
	}
	f.write(w, callback, resp)
}

func (f *fakeWebApp) resp(success bool, msg string, data any) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.response != nil {
		return f.response
	}
	return map[string]any{"success": success, "message": msg, "data": data, "timestamp": "2025-01-01T00:00:00.000Z"}
}

func (f *fakeWebApp) write(w http.ResponseWriter, callback string, resp map[string]any) {
	b, _ := json.Marshal(resp)
	if callback != "" {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write(WrapJSONP(callback, b))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}

func (f *fakeWebApp) lastRequest() *http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

var clientNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

func newTestClient(t *testing.T, handler http.Handler) (*AppsScriptClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewAppsScriptClient(Config{WebAppURL: srv.URL + "/exec", SpreadsheetID: "sheet-1", Timeout: time.Second},
		zap.NewNop(), WithClientClock(func() time.Time { return clientNow }))
	return c, srv
}

func TestAppsScriptClient_TestConnection(t *testing.T) {
	app := &fakeWebApp{}
	c, _ := newTestClient(t, app)

	ok, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	q := app.lastRequest().URL.Query()
	assert.Equal(t, "test", q.Get("action"))
	assert.Equal(t, "1741064767000", q.Get("_t"))
	assert.Regexp(t, regexp.MustCompile(`^sheetsCallback_1741064767000_[0-9a-z]{9}$`), q.Get("callback"))
	assert.Zero(t, c.PendingCallbacks())
}

func TestAppsScriptClient_TestConnection_Unconfigured(t *testing.T) {
	c := NewAppsScriptClient(Config{}, zap.NewNop())
	ok, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppsScriptClient_TestConnection_Failure(t *testing.T) {
	app := &fakeWebApp{response: map[string]any{"success": false, "message": "Test failed"}}
	c, _ := newTestClient(t, app)

	ok, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppsScriptClient_SavePlot(t *testing.T) {
	app := &fakeWebApp{}
	c, _ := newTestClient(t, app)

	p := &plot.Plot{
		ID: "plot-001", SurveyNumber: plot.Survey1521, PlotNumber: "152/1-001",
		Dimensions: plot.NewDimensions(9, 15), Status: plot.StatusSold, Owner: plot.OwnerBapurao,
		RatePerSqMeter: decimal.NewFromInt(27000), TotalCost: decimal.NewFromInt(3645000),
		Purchaser: &plot.Purchaser{Name: "Ramesh Patil", Mobile: "9876543210"},
		Payments: []plot.Payment{{ID: "payment-plot-001-001", Amount: decimal.NewFromInt(729000),
			Mode: plot.PaymentModeCash, Date: clientNow}},
		CreatedAt: clientNow, UpdatedAt: clientNow,
	}
	require.NoError(t, c.SavePlot(context.Background(), p))

	q := app.lastRequest().URL.Query()
	assert.Equal(t, "savePlot", q.Get("action"))
	assert.Equal(t, "sheet-1", q.Get("spreadsheetId"))
	assert.True(t, strings.HasPrefix(q.Get("callback"), "sheetsCallback_"))

	app.mu.Lock()
	saved := app.savedPlot
	app.mu.Unlock()
	assert.Equal(t, "plot-001", saved["id"])
	assert.Equal(t, 3645000.0, saved["totalCost"])
	assert.Equal(t, "2025-03-04T05:06:07.000Z", saved["createdAt"])
	assert.Equal(t, "Ramesh Patil", saved["purchaser"].(map[string]any)["name"])
	assert.Len(t, saved["payments"], 1)
	assert.Zero(t, c.PendingCallbacks())
}

func TestAppsScriptClient_SavePlot_RemoteFailure(t *testing.T) {
	app := &fakeWebApp{response: map[string]any{"success": false, "message": "Error saving plot via GET: boom"}}
	c, _ := newTestClient(t, app)

	err := c.SavePlot(context.Background(), &plot.Plot{ID: "x"})
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "savePlot", remote.Action)
	assert.Contains(t, err.Error(), "boom")
	assert.Zero(t, c.PendingCallbacks())
}

func TestAppsScriptClient_SavePlot_Unconfigured(t *testing.T) {
	c := NewAppsScriptClient(Config{}, zap.NewNop())
	assert.NoError(t, c.SavePlot(context.Background(), &plot.Plot{ID: "x"}))
}

func TestAppsScriptClient_CallbackMismatch(t *testing.T) {
	app := &fakeWebApp{callbackOverride: "someoneElse"}
	c, _ := newTestClient(t, app)

	_, err := c.TestConnection(context.Background())
	assert.ErrorIs(t, err, ErrCallbackMismatch)
	assert.Zero(t, c.PendingCallbacks())
}

func TestAppsScriptClient_Timeout(t *testing.T) {
	app := &fakeWebApp{block: true}
	srv := httptest.NewServer(app)
	defer srv.Close()
	c := NewAppsScriptClient(Config{WebAppURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())

	err := c.SavePlot(context.Background(), &plot.Plot{ID: "slow"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Zero(t, c.PendingCallbacks())
}

func TestAppsScriptClient_HTTPError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "script error", http.StatusInternalServerError)
	}))

	_, err := c.FetchPlots(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
}

func TestAppsScriptClient_PendingDuringRequest(t *testing.T) {
	release := make(chan struct{})
	seen := make(chan int, 1)
	var c *AppsScriptClient
	c, _ = newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- c.PendingCallbacks()
		<-release
		b, _ := json.Marshal(map[string]any{"success": true})
		_, _ = w.Write(WrapJSONP(r.URL.Query().Get("callback"), b))
	}))

	done := make(chan error, 1)
	go func() {
		_, err := c.TestConnection(context.Background())
		done <- err
	}()

	assert.Equal(t, 1, <-seen)
	close(release)
	require.NoError(t, <-done)
	assert.Zero(t, c.PendingCallbacks())
}

func TestAppsScriptClient_FetchPlots(t *testing.T) {
	body := `{"success":true,"message":"Plots retrieved successfully","timestamp":"2025-01-01T00:00:00.000Z","data":[
	  {"id":"plot-001","surveyNumber":"152/1","plotNumber":"152/1-001",
	   "dimensions":{"length":9,"width":"15","area":"135"},
	   "status":"SOLD","owner":"BAPURAO","ratePerSqMeter":"27000","totalCost":3645000,"governmentRate":"",
	   "createdAt":"2024-05-01T10:00:00.000Z","updatedAt":"",
	   "purchaser":{"name":"Ramesh Patil","mobile":9876543210,"email":"","address":"","registrationDate":"2024-05-01T00:00:00.000Z"},
	   "payments":[{"id":"p1","amount":"729000","date":"2024-05-01T00:00:00.000Z","mode":"CASH"}]},
	  {"surveyNumber":"","plotNumber":"","dimensions":null,"status":"","owner":"","totalCost":"abc","purchaser":null}
	]}`
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getAllPlots", r.URL.Query().Get("action"))
		assert.Equal(t, "sheet-1", r.URL.Query().Get("spreadsheetId"))
		_, _ = io.WriteString(w, body)
	}))

	plots, err := c.FetchPlots(context.Background())
	require.NoError(t, err)
	require.Len(t, plots, 2)

	p := plots[0]
	assert.Equal(t, 15.0, p.Dimensions.Width)
	assert.True(t, p.RatePerSqMeter.Equal(decimal.NewFromInt(27000)))
	assert.True(t, p.GovernmentRate.IsZero())
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt)
	assert.Equal(t, clientNow, p.UpdatedAt)
	require.NotNil(t, p.Purchaser)
	assert.Equal(t, "9876543210", p.Purchaser.Mobile)
	require.Len(t, p.Payments, 1)
	assert.True(t, p.Payments[0].Amount.Equal(decimal.NewFromInt(729000)))

	d := plots[1]
	assert.Equal(t, plot.Survey1521, d.SurveyNumber)
	assert.Equal(t, "1", d.PlotNumber)
	assert.Equal(t, "152/1-1-1741064767000", d.ID)
	assert.Equal(t, plot.StatusAvailable, d.Status)
	assert.Equal(t, plot.OwnerJoint, d.Owner)
	assert.True(t, d.TotalCost.IsZero())
	assert.Nil(t, d.Purchaser)
	assert.NotNil(t, d.Payments)
}

func TestAppsScriptClient_FetchPlots_Failure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"Exception: no sheet"}`)
	}))

	_, err := c.FetchPlots(context.Background())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "Exception: no sheet", remote.Message)
}

func TestAppsScriptClient_FetchPlots_Unconfigured(t *testing.T) {
	plots, err := NewAppsScriptClient(Config{}, zap.NewNop()).FetchPlots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, plots)
}

func TestAppsScriptClient_Posts(t *testing.T) {
	app := &fakeWebApp{}
	c, _ := newTestClient(t, app)
	ctx := context.Background()

	require.NoError(t, c.SavePayment(ctx, plot.Payment{ID: "PAY_1", Amount: decimal.NewFromInt(500), Mode: plot.PaymentModeUPI}, "plot-009"))
	require.NoError(t, c.SaveCustomer(ctx, &plot.Purchaser{Name: "Asha"}, "plot-009"))
	require.NoError(t, c.InitializeSheets(ctx))

	app.mu.Lock()
	defer app.mu.Unlock()
	require.Len(t, app.posts, 3)
	assert.Equal(t, "savePayment", app.posts[0]["action"])
	data := app.posts[0]["data"].(map[string]any)
	assert.Equal(t, "plot-009", data["plotId"])
	assert.Equal(t, "sheet-1", data["spreadsheetId"])
	assert.Equal(t, 500.0, data["payment"].(map[string]any)["amount"])
	assert.Equal(t, "saveCustomer", app.posts[1]["action"])
	assert.Equal(t, "initializeSheets", app.posts[2]["action"])
	assert.NotContains(t, app.posts[2], "data")
}

func TestAppsScriptClient_UniqueCallbacks(t *testing.T) {
	c := NewAppsScriptClient(Config{WebAppURL: "http://unused"}, zap.NewNop(),
		WithClientClock(func() time.Time { return clientNow }))

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := c.newCallbackName()
		assert.False(t, seen[name])
		seen[name] = true
	}
	assert.Equal(t, 100, c.PendingCallbacks())
	for name := range seen {
		c.releaseCallback(name)
	}
	assert.Zero(t, c.PendingCallbacks())
}
