package plot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/domain/shared"
)

// Load sources reported by LoadResult
const (
	SourceSheets    = "sheets"
	SourceStore     = "store"
	SourceGenerated = "generated"
	SourceCleared   = "cleared"
)

// DefaultBatchDelay is the pause between plots during a batch push
const DefaultBatchDelay = 500 * time.Millisecond

var (
	// ErrSheetsDisabled is returned by operations that need the spreadsheet
	ErrSheetsDisabled = shared.NewDomainError("SHEETS_DISABLED", "Google Sheets integration is not enabled")
	// ErrSheetsDisabledTest is returned by the connection test when sheets are off
	ErrSheetsDisabledTest = shared.NewDomainError("SHEETS_DISABLED", "Google Sheets integration is disabled")
)

// RemoteStore is the spreadsheet behind the Apps Script middleware
type RemoteStore interface {
	FetchPlots(ctx context.Context) ([]*plot.Plot, error)
	SavePlot(ctx context.Context, p *plot.Plot) error
	TestConnection(ctx context.Context) (bool, error)
}

// SyncQueue runs full pushes in the background
type SyncQueue interface {
	EnqueuePush(ctx context.Context, reason string) error
}

// LoadResult describes where the current list came from
type LoadResult struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// BatchResult counts the outcome of a batch push
type BatchResult struct {
	Total  int `json:"total"`
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
}

// PlotService owns the in-memory plot list. The list is the source of truth
// for reads; changes are applied locally first and pushed to the
// spreadsheet afterwards on a best-effort basis.
type PlotService struct {
	mu            sync.RWMutex
	plots         []*plot.Plot
	sheetsEnabled bool

	remote     RemoteStore
	store      plot.Repository
	queue      SyncQueue
	generator  *plot.Generator
	events     shared.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
	batchDelay time.Duration
}

// Option configures a PlotService
type Option func(*PlotService)

// WithRepository mirrors every change into a local store
func WithRepository(store plot.Repository) Option {
	return func(s *PlotService) {
		s.store = store
	}
}

// WithEventPublisher sets the publisher for plot events
func WithEventPublisher(events shared.EventPublisher) Option {
	return func(s *PlotService) {
		s.events = events
	}
}

// WithGenerator sets the generator used for fallback data
func WithGenerator(g *plot.Generator) Option {
	return func(s *PlotService) {
		s.generator = g
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *PlotService) {
		s.logger = logger
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(s *PlotService) {
		s.now = now
	}
}

// WithBatchDelay sets the pause between plots of a batch push
func WithBatchDelay(d time.Duration) Option {
	return func(s *PlotService) {
		s.batchDelay = d
	}
}

// WithSheetsEnabled sets the initial state of the spreadsheet integration
func WithSheetsEnabled(enabled bool) Option {
	return func(s *PlotService) {
		s.sheetsEnabled = enabled
	}
}

// NewPlotService creates a PlotService with an empty list. Call Load to
// populate it.
func NewPlotService(remote RemoteStore, opts ...Option) *PlotService {
	s := &PlotService{
		plots:         make([]*plot.Plot, 0),
		sheetsEnabled: true,
		remote:        remote,
		generator:     plot.NewGenerator(),
		events:        shared.NopPublisher{},
		logger:        zap.NewNop(),
		now:           time.Now,
		batchDelay:    DefaultBatchDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetSyncQueue wires the background queue used by RequestSync and by
// RegenerateAll. Without one, pushes run inline.
func (s *PlotService) SetSyncQueue(q SyncQueue) {
	s.queue = q
}

// Load fills the list. With sheets enabled it reads the spreadsheet and
// falls back to generated data when the read fails. With sheets disabled it
// uses the local store when it has plots, otherwise generated data.
func (s *PlotService) Load(ctx context.Context) (LoadResult, error) {
	if s.SheetsEnabled() {
		return s.loadFromSheets(ctx), nil
	}
	return s.loadLocal(ctx), nil
}

func (s *PlotService) loadFromSheets(ctx context.Context) LoadResult {
	plots, err := s.remote.FetchPlots(ctx)
	if err != nil {
		s.logger.Warn("Failed to load plots from Google Sheets, using generated data", zap.Error(err))
		return s.replaceAll(ctx, s.generator.GenerateAll(), SourceGenerated)
	}
	return s.replaceAll(ctx, plots, SourceSheets)
}

// Pull replaces the list with the spreadsheet contents. Unlike Load it
// keeps the current list when the read fails.
func (s *PlotService) Pull(ctx context.Context) (LoadResult, error) {
	if !s.SheetsEnabled() {
		return LoadResult{}, ErrSheetsDisabled
	}
	plots, err := s.remote.FetchPlots(ctx)
	if err != nil {
		return LoadResult{}, err
	}
	return s.replaceAll(ctx, plots, SourceSheets), nil
}

func (s *PlotService) loadLocal(ctx context.Context) LoadResult {
	if s.store != nil {
		count, err := s.store.Count(ctx)
		if err != nil {
			s.logger.Warn("Failed to count stored plots", zap.Error(err))
		} else if count > 0 {
			plots, err := s.store.FindAll(ctx)
			if err == nil {
				s.setPlots(plots)
				s.logger.Info("Plots loaded", zap.String("source", SourceStore), zap.Int("count", len(plots)))
				s.publish(ctx, plot.NewPlotsReplacedEvent(SourceStore, plots))
				return LoadResult{Source: SourceStore, Count: len(plots)}
			}
			s.logger.Warn("Failed to read stored plots", zap.Error(err))
		}
	}
	return s.replaceAll(ctx, s.generator.GenerateAll(), SourceGenerated)
}

// replaceAll swaps the list and mirrors it into the store
func (s *PlotService) replaceAll(ctx context.Context, plots []*plot.Plot, source string) LoadResult {
	s.setPlots(plots)
	if s.store != nil {
		if err := s.store.ReplaceAll(ctx, plots); err != nil {
			s.logger.Warn("Failed to mirror plots into local store", zap.Error(err))
		}
	}
	s.logger.Info("Plots loaded", zap.String("source", source), zap.Int("count", len(plots)))
	s.publish(ctx, plot.NewPlotsReplacedEvent(source, plots))
	return LoadResult{Source: source, Count: len(plots)}
}

func (s *PlotService) setPlots(plots []*plot.Plot) {
	list := make([]*plot.Plot, 0, len(plots))
	for _, p := range plots {
		if p != nil {
			list = append(list, p.Clone())
		}
	}
	s.mu.Lock()
	s.plots = list
	s.mu.Unlock()
}

// PlotCount returns the number of plots in memory
func (s *PlotService) PlotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plots)
}

// AllPlots returns copies of all plots in list order
func (s *PlotService) AllPlots() []*plot.Plot {
	return s.filter(func(*plot.Plot) bool { return true })
}

func (s *PlotService) filter(keep func(*plot.Plot) bool) []*plot.Plot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*plot.Plot, 0, len(s.plots))
	for _, p := range s.plots {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// SheetsEnabled reports whether the spreadsheet integration is on
func (s *PlotService) SheetsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sheetsEnabled
}

// EnableSheets turns the integration on and reloads from the spreadsheet
func (s *PlotService) EnableSheets(ctx context.Context) LoadResult {
	s.mu.Lock()
	s.sheetsEnabled = true
	s.mu.Unlock()
	return s.loadFromSheets(ctx)
}

// DisableSheets turns the integration off and reloads local data
func (s *PlotService) DisableSheets(ctx context.Context) LoadResult {
	s.mu.Lock()
	s.sheetsEnabled = false
	s.mu.Unlock()
	return s.loadLocal(ctx)
}

// RegenerateResult reports a regeneration
type RegenerateResult struct {
	Summary    plot.Summary `json:"summary"`
	SyncQueued bool         `json:"sync_queued"`
}

// RegenerateAll rebuilds all 290 plots, optionally seeding sample sales,
// and optionally pushes them to the spreadsheet.
func (s *PlotService) RegenerateAll(ctx context.Context, includeSample, syncToSheets bool) (RegenerateResult, error) {
	plots := s.generator.GenerateAll()
	if includeSample {
		plots = s.generator.GenerateSampleSold(plots, plot.DefaultSampleSales)
	}
	s.replaceAll(ctx, plots, SourceGenerated)

	result := RegenerateResult{Summary: plot.Summarize(plots)}
	if syncToSheets && s.SheetsEnabled() {
		if err := s.RequestSync(ctx, "regenerate"); err != nil {
			return result, err
		}
		result.SyncQueued = true
	}
	return result, nil
}

// SaveBatch pushes plots one by one in sync order. It waits between
// successful saves, keeps going after failures and stops early only when
// ctx is cancelled.
func (s *PlotService) SaveBatch(ctx context.Context, plots []*plot.Plot) BatchResult {
	sorted := plot.SortForSync(plots)
	result := BatchResult{Total: len(sorted)}

	s.logger.Info("Saving plots to Google Sheets", zap.Int("count", len(sorted)))
	for i, p := range sorted {
		if ctx.Err() != nil {
			s.logger.Warn("Batch save cancelled", zap.Int("remaining", len(sorted)-i))
			break
		}

		if err := s.remote.SavePlot(ctx, p); err != nil {
			result.Failed++
			s.logger.Error("Failed to save plot",
				zap.String("plot_id", p.ID),
				zap.String("survey", string(p.SurveyNumber)),
				zap.String("plot_number", p.PlotNumber),
				zap.Error(err),
			)
			continue
		}
		result.Saved++

		if i < len(sorted)-1 && s.batchDelay > 0 {
			timer := time.NewTimer(s.batchDelay)
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			timer.Stop()
		}
	}

	s.logger.Info("Finished saving plots to Google Sheets",
		zap.Int("saved", result.Saved),
		zap.Int("failed", result.Failed),
	)
	return result
}

// SyncAll pushes every plot to the spreadsheet and waits for the result
func (s *PlotService) SyncAll(ctx context.Context) (BatchResult, error) {
	if !s.SheetsEnabled() {
		return BatchResult{}, ErrSheetsDisabled
	}
	plots := s.AllPlots()
	if len(plots) == 0 {
		s.logger.Info("No plots to sync")
		return BatchResult{}, nil
	}
	return s.SaveBatch(ctx, plots), nil
}

// RequestSync queues a full push, or runs it inline without a queue
func (s *PlotService) RequestSync(ctx context.Context, reason string) error {
	if !s.SheetsEnabled() {
		return ErrSheetsDisabled
	}
	if s.queue != nil {
		return s.queue.EnqueuePush(ctx, reason)
	}
	_, err := s.SyncAll(ctx)
	return err
}

// PlotsBySurvey returns the plots of one survey
func (s *PlotService) PlotsBySurvey(survey plot.SurveyNumber) []*plot.Plot {
	return s.filter(func(p *plot.Plot) bool { return p.SurveyNumber == survey })
}

// PlotsByStatus returns the plots with a given status
func (s *PlotService) PlotsByStatus(status plot.Status) []*plot.Plot {
	return s.filter(func(p *plot.Plot) bool { return p.Status == status })
}

// Search returns plots matching a free-text query
func (s *PlotService) Search(query string) []*plot.Plot {
	return s.filter(func(p *plot.Plot) bool { return p.MatchesQuery(query) })
}

// PlotByID returns a copy of the plot
func (s *PlotService) PlotByID(id string) (*plot.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.plots[i].Clone(), nil
	}
	return nil, notFound(id)
}

// indexOf must be called with the lock held
func (s *PlotService) indexOf(id string) int {
	for i, p := range s.plots {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func notFound(id string) error {
	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Plot %s not found", id))
}

// RefreshPlot reloads the list from the spreadsheet and returns the plot.
// If the spreadsheet cannot be read the local copy is returned.
func (s *PlotService) RefreshPlot(ctx context.Context, id string) (*plot.Plot, error) {
	if !s.SheetsEnabled() {
		return s.PlotByID(id)
	}
	plots, err := s.remote.FetchPlots(ctx)
	if err != nil {
		s.logger.Warn("Failed to refresh plot from Google Sheets", zap.String("plot_id", id), zap.Error(err))
		return s.PlotByID(id)
	}
	s.replaceAll(ctx, plots, SourceSheets)
	return s.PlotByID(id)
}

// UpdatePlot replaces the stored plot with the same id
func (s *PlotService) UpdatePlot(ctx context.Context, updated *plot.Plot) (*plot.Plot, error) {
	if updated == nil {
		return nil, shared.ErrInvalidInput
	}
	return s.Modify(ctx, updated.ID, func(p *plot.Plot) error {
		*p = *updated.Clone()
		return nil
	})
}

// Modify applies fn to a copy of the plot and stores the result. The change
// is stamped, mirrored locally and announced with a PlotUpdated event.
func (s *PlotService) Modify(ctx context.Context, id string, fn func(*plot.Plot) error) (*plot.Plot, error) {
	return s.ModifyWithEvent(ctx, id, fn, func(p *plot.Plot) shared.DomainEvent {
		return plot.NewPlotUpdatedEvent(p)
	})
}

// ModifyWithEvent is Modify with the announcing event built by announce
// from the stored plot.
func (s *PlotService) ModifyWithEvent(ctx context.Context, id string, fn func(*plot.Plot) error, announce func(*plot.Plot) shared.DomainEvent) (*plot.Plot, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, notFound(id)
	}
	next := s.plots[i].Clone()
	if err := fn(next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	next.ID = id
	next.Touch(s.now())
	s.plots[i] = next
	snapshot := next.Clone()
	s.mu.Unlock()

	s.afterChange(ctx, snapshot, announce(snapshot))
	return snapshot, nil
}

// UpdateStatus changes the status of a plot
func (s *PlotService) UpdateStatus(ctx context.Context, id string, status plot.Status) (*plot.Plot, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Invalid plot status: "+string(status))
	}
	return s.Modify(ctx, id, func(p *plot.Plot) error {
		p.Status = status
		return nil
	})
}

// NewPlotInput holds the fields of a hand-entered plot. Zero values fall
// back to defaults.
type NewPlotInput struct {
	SurveyNumber   plot.SurveyNumber
	PlotNumber     string
	Dimensions     plot.Dimensions
	Status         plot.Status
	Owner          plot.Owner
	RatePerSqMeter decimal.Decimal
	TotalCost      decimal.Decimal
	GovernmentRate decimal.Decimal
	Purchaser      *plot.Purchaser
	Payments       []plot.Payment
}

// AddPlot appends a new plot. A plot number may appear only once per survey.
func (s *PlotService) AddPlot(ctx context.Context, in NewPlotInput) (*plot.Plot, error) {
	survey := in.SurveyNumber
	if survey == "" {
		survey = plot.Survey1521
	}
	status := in.Status
	if status == "" {
		status = plot.StatusAvailable
	}
	owner := in.Owner
	if owner == "" {
		owner = plot.OwnerJoint
	}
	payments := in.Payments
	if payments == nil {
		payments = []plot.Payment{}
	}

	now := s.now()
	p := &plot.Plot{
		ID:             plot.NewPlotID(survey, in.PlotNumber, now),
		SurveyNumber:   survey,
		PlotNumber:     in.PlotNumber,
		Dimensions:     in.Dimensions,
		Status:         status,
		Owner:          owner,
		RatePerSqMeter: in.RatePerSqMeter,
		TotalCost:      in.TotalCost,
		GovernmentRate: in.GovernmentRate,
		Purchaser:      in.Purchaser,
		Payments:       payments,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.mu.Lock()
	for _, existing := range s.plots {
		if existing.SurveyNumber == survey && existing.PlotNumber == in.PlotNumber {
			s.mu.Unlock()
			return nil, shared.NewDomainError("ALREADY_EXISTS",
				fmt.Sprintf("Plot number %s already exists in survey %s", in.PlotNumber, survey))
		}
	}
	s.plots = append(s.plots, p.Clone())
	s.mu.Unlock()

	s.afterChange(ctx, p, plot.NewPlotCreatedEvent(p))
	return p, nil
}

// afterChange mirrors a plot locally and publishes the event. Neither step
// can fail the change.
func (s *PlotService) afterChange(ctx context.Context, p *plot.Plot, event shared.DomainEvent) {
	if s.store != nil {
		if err := s.store.Save(ctx, p); err != nil {
			s.logger.Warn("Failed to mirror plot into local store", zap.String("plot_id", p.ID), zap.Error(err))
		}
	}
	s.publish(ctx, event)
}

// publish never fails the change that raised the event
func (s *PlotService) publish(ctx context.Context, event shared.DomainEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish plot event",
			zap.String("plot_id", event.AggregateID()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

// DashboardStats computes the dashboard over the current list
func (s *PlotService) DashboardStats() plot.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return plot.ComputeDashboardStats(s.plots)
}

// Summary summarises the current list by survey and size
func (s *PlotService) Summary() plot.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return plot.Summarize(s.plots)
}

// TestConnection pings the Apps Script middleware
func (s *PlotService) TestConnection(ctx context.Context) (bool, error) {
	if !s.SheetsEnabled() {
		return false, ErrSheetsDisabledTest
	}
	ok, err := s.remote.TestConnection(ctx)
	if err != nil {
		s.logger.Warn("Google Sheets connection test failed", zap.Error(err))
		return false, nil
	}
	return ok, nil
}

// Clear empties the list and the local store
func (s *PlotService) Clear(ctx context.Context) error {
	s.setPlots(nil)
	if s.store != nil {
		if err := s.store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear local store: %w", err)
		}
	}
	s.logger.Info("All plots cleared from memory")
	s.publish(ctx, plot.NewPlotsReplacedEvent(SourceCleared, nil))
	return nil
}

// IsNotFound reports whether err is a missing-plot error
func IsNotFound(err error) bool {
	return errors.Is(err, shared.ErrNotFound)
}
