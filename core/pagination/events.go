package pagination

import (
	"fmt"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-paginate/core/query"
)

// EventType names a pagination lifecycle event.
type EventType string

const (
	PaginateStart   EventType = "pagination:start"
	PaginateSuccess EventType = "pagination:success"
	PaginateFailed  EventType = "pagination:failed"
)

// Event is emitted on the optional event bus around every Paginate call.
type Event struct {
	Type           EventType            `json:"type"`
	Timestamp      int64                `json:"timestamp"`
	PaginationID   string               `json:"paginationId"`
	CurrentPage    int                  `json:"currentPage"`
	ResultsPerPage int                  `json:"resultsPerPage"`
	Filters        []query.FilterClause `json:"filters,omitempty"`
	Orders         []query.OrderClause  `json:"orders,omitempty"`
	TotalRecords   *int64               `json:"totalRecords,omitempty"`
	Error          *string              `json:"error,omitempty"`
	Duration       *int64               `json:"duration,omitempty"`
}

// EventBus is the typed bus pagination events are published on.
type EventBus = events.TypedEventBus[Event]

// NewEventBus creates a bus with the library defaults.
func NewEventBus() (*EventBus, error) {
	bus, err := events.NewTypedEventBus[Event](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	return bus, nil
}

func (p *Pagination) newEvent(eventType EventType, startTime time.Time) Event {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}
	return Event{
		Type:           eventType,
		Timestamp:      time.Now().UnixMilli(),
		PaginationID:   p.id,
		CurrentPage:    p.parameters.CurrentPage(),
		ResultsPerPage: p.parameters.ResultsPerPage(),
		Filters:        p.builder.Filters(),
		Orders:         p.builder.Orders(),
		Duration:       duration,
	}
}

func (p *Pagination) emit(event Event) {
	if p.bus != nil {
		p.bus.Emit(string(event.Type), event)
	}
}
