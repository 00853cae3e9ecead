package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "build.completed", "watch.suspended")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Base provides common fields for all events. Packages that define their own
// events (the engine's hooks, for example) embed it.
type Base struct {
	eventType string
	timestamp time.Time
}

func (e Base) EventType() string    { return e.eventType }
func (e Base) Timestamp() time.Time { return e.timestamp }

// NewBase creates a Base with the current time.
func NewBase(eventType string) Base {
	return Base{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event types published by the bridge.
const (
	TypeBuildCompleted = "build.completed"
	TypeItemEmitted    = "item.emitted"
	TypeWatchSuspended = "watch.suspended"
	TypeWatchResumed   = "watch.resumed"
)

// -----------------------------------------------------------------------------
// Build Events
// -----------------------------------------------------------------------------

// BuildCompletedEvent is emitted after a target's build pass was correlated
// and reported.
type BuildCompletedEvent struct {
	Base
	Target   string
	BuildID  string
	Assets   int
	Errors   int
	Warnings int
	Duration time.Duration
}

// NewBuildCompletedEvent creates a BuildCompletedEvent.
func NewBuildCompletedEvent(target, buildID string, assets, errs, warnings int, duration time.Duration) BuildCompletedEvent {
	return BuildCompletedEvent{
		Base:     NewBase(TypeBuildCompleted),
		Target:   target,
		BuildID:  buildID,
		Assets:   assets,
		Errors:   errs,
		Warnings: warnings,
		Duration: duration,
	}
}

// ItemEmittedEvent is emitted for every item the bridge forwards downstream.
type ItemEmittedEvent struct {
	Base
	Target  string
	Path    string
	Outcome string // matched, fresh
}

// NewItemEmittedEvent creates an ItemEmittedEvent.
func NewItemEmittedEvent(target, path, outcome string) ItemEmittedEvent {
	return ItemEmittedEvent{
		Base:    NewBase(TypeItemEmitted),
		Target:  target,
		Path:    path,
		Outcome: outcome,
	}
}

// -----------------------------------------------------------------------------
// Watch Events
// -----------------------------------------------------------------------------

// WatchSuspendedEvent is emitted when a failing build suspends a watch session.
type WatchSuspendedEvent struct {
	Base
	Target   string
	ResumeIn time.Duration
}

// NewWatchSuspendedEvent creates a WatchSuspendedEvent.
func NewWatchSuspendedEvent(target string, resumeIn time.Duration) WatchSuspendedEvent {
	return WatchSuspendedEvent{
		Base:     NewBase(TypeWatchSuspended),
		Target:   target,
		ResumeIn: resumeIn,
	}
}

// WatchResumedEvent is emitted when a suspended watch session resumes.
type WatchResumedEvent struct {
	Base
	Target string
}

// NewWatchResumedEvent creates a WatchResumedEvent.
func NewWatchResumedEvent(target string) WatchResumedEvent {
	return WatchResumedEvent{
		Base:   NewBase(TypeWatchResumed),
		Target: target,
	}
}
