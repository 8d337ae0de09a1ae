package events

import "sync"

// Handler receives one event. Synchronous handlers run in registration
// order on the emitting goroutine; async handlers run concurrently with
// each other, but Emit waits for all of them before returning, so side
// effects like event persistence are durable before the executor moves on.
type Handler func(Event)

type subscription struct {
	id    int
	fn    Handler
	async bool
}

// Emitter broadcasts a plan's execution events to subscribers and retains
// the full ordered history.
type Emitter struct {
	planID string

	mu      sync.Mutex
	nextID  int
	subs    []*subscription
	history []Event
}

func NewEmitter(planID string) *Emitter {
	return &Emitter{planID: planID}
}

func (e *Emitter) PlanID() string { return e.planID }

// Subscribe registers a synchronous handler and returns an unsubscribe
// func. Unsubscribing during an active emission does not affect the
// current delivery pass.
func (e *Emitter) Subscribe(fn Handler) func() {
	return e.add(fn, false)
}

// SubscribeAsync registers a handler that runs on its own goroutine per
// event; Emit joins it before returning.
func (e *Emitter) SubscribeAsync(fn Handler) func() {
	return e.add(fn, true)
}

func (e *Emitter) add(fn Handler, async bool) func() {
	e.mu.Lock()
	e.nextID++
	sub := &subscription{id: e.nextID, fn: fn, async: async}
	e.subs = append(e.subs, sub)
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == sub.id {
				e.subs = append(e.subs[:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit records the event in history and delivers it to every subscriber
// registered at the time of the call.
func (e *Emitter) Emit(ev Event) {
	if ev.PlanID == "" {
		ev.PlanID = e.planID
	}

	e.mu.Lock()
	e.history = append(e.history, ev)
	snapshot := make([]*subscription, len(e.subs))
	copy(snapshot, e.subs)
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range snapshot {
		if s.async {
			wg.Add(1)
			go func(s *subscription) {
				defer wg.Done()
				s.fn(ev)
			}(s)
			continue
		}
		s.fn(ev)
	}
	wg.Wait()
}

// History returns a copy of all events ever emitted, in order.
func (e *Emitter) History() []Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Event, len(e.history))
	copy(out, e.history)
	return out
}

// LastEvent returns the most recent event of the given type.
func (e *Emitter) LastEvent(t Type) (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].Type == t {
			return e.history[i], true
		}
	}
	return Event{}, false
}
