package plot

import "github.com/landplots/backend/internal/domain/shared"

// Event type constants
const (
	EventTypePlotCreated   = "PlotCreated"
	EventTypePlotUpdated   = "PlotUpdated"
	EventTypePaymentAdded  = "PaymentAdded"
	EventTypePlotsReplaced = "PlotsReplaced"
)

// PlotChangedEvent is implemented by events that carry a plot snapshot
type PlotChangedEvent interface {
	shared.DomainEvent
	PlotSnapshot() *Plot
}

// PlotCreatedEvent is raised when a plot is added by hand
type PlotCreatedEvent struct {
	shared.BaseDomainEvent
	Plot *Plot `json:"plot"`
}

// PlotSnapshot implements PlotChangedEvent
func (e *PlotCreatedEvent) PlotSnapshot() *Plot { return e.Plot }

// NewPlotCreatedEvent creates a PlotCreatedEvent from a copy of p
func NewPlotCreatedEvent(p *Plot) *PlotCreatedEvent {
	return &PlotCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlotCreated, AggregateTypePlot, p.ID),
		Plot:            p.Clone(),
	}
}

// PlotUpdatedEvent is raised whenever a plot is replaced in the list
type PlotUpdatedEvent struct {
	shared.BaseDomainEvent
	Plot *Plot `json:"plot"`
}

// PlotSnapshot implements PlotChangedEvent
func (e *PlotUpdatedEvent) PlotSnapshot() *Plot { return e.Plot }

// NewPlotUpdatedEvent creates a PlotUpdatedEvent from a copy of p
func NewPlotUpdatedEvent(p *Plot) *PlotUpdatedEvent {
	return &PlotUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlotUpdated, AggregateTypePlot, p.ID),
		Plot:            p.Clone(),
	}
}

// PaymentAddedEvent is raised when an instalment is recorded. It carries the
// plot as it stands after the payment so the handler can push the whole row.
type PaymentAddedEvent struct {
	shared.BaseDomainEvent
	Plot    *Plot   `json:"plot"`
	Payment Payment `json:"payment"`
}

func (e *PaymentAddedEvent) PlotSnapshot() *Plot { return e.Plot }

func NewPaymentAddedEvent(p *Plot, pm Payment) *PaymentAddedEvent {
	return &PaymentAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentAdded, AggregateTypePlot, p.ID),
		Plot:            p.Clone(),
		Payment:         pm,
	}
}

// PlotsReplacedAggregateID is the aggregate id of list-wide events
const PlotsReplacedAggregateID = "*"

// PlotsReplacedEvent is raised when the whole list is swapped: a load,
// pull, regenerate or clear. Plots is empty after a clear.
type PlotsReplacedEvent struct {
	shared.BaseDomainEvent
	Source string  `json:"source"`
	Plots  []*Plot `json:"plots"`
}

func NewPlotsReplacedEvent(source string, plots []*Plot) *PlotsReplacedEvent {
	snap := make([]*Plot, 0, len(plots))
	for _, p := range plots {
		if p != nil {
			snap = append(snap, p.Clone())
		}
	}
	return &PlotsReplacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlotsReplaced, AggregateTypePlot, PlotsReplacedAggregateID),
		Source:          source,
		Plots:           snap,
	}
}
