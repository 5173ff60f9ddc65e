package shared

// EventRecorder holds domain events raised by an entity until the application layer
// publishes them after the transaction commits.
type EventRecorder struct {
	pending []DomainEvent
}

// Record appends events to the pending list
func (r *EventRecorder) Record(events ...DomainEvent) {
	r.pending = append(r.pending, events...)
}

// GetDomainEvents returns the pending events in the order they were recorded
func (r *EventRecorder) GetDomainEvents() []DomainEvent {
	return r.pending
}

// ClearDomainEvents drops the pending events
func (r *EventRecorder) ClearDomainEvents() {
	r.pending = nil
}

// AggregateRoot is a consistency boundary saved with an optimistic version check
type AggregateRoot interface {
	CurrentVersion() int
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot combines identity, the optimistic-lock version and pending events
type BaseAggregateRoot struct {
	BaseEntity
	EventRecorder
	Version int
}

// NewBaseAggregateRoot creates a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// CurrentVersion returns the version the next save is checked against
func (a *BaseAggregateRoot) CurrentVersion() int {
	return a.Version
}

// IncrementVersion advances the version after a change
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}
