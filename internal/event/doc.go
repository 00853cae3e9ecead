// Package event provides a synchronous pub-sub bus for decoupled communication
// between packstream components.
//
// The engine publishes its after-emit hook through a [Bus], and the bridge
// publishes build and watch lifecycle events that the CLI and tests observe.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Base]: Embeddable implementation for events defined in other packages
//   - [Bus]: Synchronous pub-sub dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Build:
//   - [BuildCompletedEvent]: a target's pass was correlated and reported
//   - [ItemEmittedEvent]: an item was forwarded downstream
//
// Watch:
//   - [WatchSuspendedEvent]: a failing build suspended the session
//   - [WatchResumedEvent]: a suspended session resumed
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called synchronously
// and protected against panics; [Bus.OnPanic] lets the owner turn a recovered
// panic into an error.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeWatchSuspended, func(e event.Event) {
//	    s := e.(event.WatchSuspendedEvent)
//	    log.Printf("%s suspended, resuming in %s", s.Target, s.ResumeIn)
//	})
//	bus.Publish(event.NewWatchSuspendedEvent("web", 5*time.Second))
package event
