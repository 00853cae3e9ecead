package engine

import (
	"fmt"
	"sync"

	"github.com/Iron-Ham/packstream/internal/event"
)

// TypeAfterEmit is published once per completed pass, after artifacts were
// written to the output filesystem and before the pass's callback runs.
const TypeAfterEmit = "compile.after_emit"

// AfterEmitEvent carries the compilation to after-emit handlers.
type AfterEmitEvent struct {
	event.Base
	Compilation *Compilation
}

// Hooks is a compiler's extension point. Handlers are registered by name and
// run synchronously, in registration order.
type Hooks struct {
	bus *event.Bus

	mu       sync.Mutex
	taps     map[string]string // name -> subscription ID
	panicErr error
}

// NewHooks creates an empty hook registry.
func NewHooks() *Hooks {
	h := &Hooks{
		bus:  event.NewBus(),
		taps: make(map[string]string),
	}
	h.bus.OnPanic(func(eventType string, recovered any) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.panicErr == nil {
			h.panicErr = fmt.Errorf("%s handler panicked: %v", eventType, recovered)
		}
	})
	return h
}

// TapAfterEmit registers fn under name. Tapping the same name again replaces
// the earlier handler, so a compiler reused across invocations never calls a
// stale one.
func (h *Hooks) TapAfterEmit(name string, fn func(*Compilation)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id, ok := h.taps[name]; ok {
		h.bus.Unsubscribe(id)
	}
	h.taps[name] = h.bus.Subscribe(TypeAfterEmit, func(e event.Event) {
		fn(e.(AfterEmitEvent).Compilation)
	})
}

// UntapAfterEmit removes the handler registered under name.
func (h *Hooks) UntapAfterEmit(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if id, ok := h.taps[name]; ok {
		h.bus.Unsubscribe(id)
		delete(h.taps, name)
	}
}

// Taps returns the number of registered handlers.
func (h *Hooks) Taps() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.taps)
}

// CallAfterEmit runs every after-emit handler for c. A handler panic is
// recovered and returned as an error once all handlers ran.
func (h *Hooks) CallAfterEmit(c *Compilation) error {
	h.bus.Publish(AfterEmitEvent{Base: event.NewBase(TypeAfterEmit), Compilation: c})

	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.panicErr
	h.panicErr = nil
	return err
}
