package events

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestEmitter_DeliversInRegistrationOrder(t *testing.T) {
	e := NewEmitter("p1")

	var order []string
	e.Subscribe(func(Event) { order = append(order, "first") })
	e.Subscribe(func(Event) { order = append(order, "second") })

	e.Emit(NewPlanStartedEvent("p1", "goal", 2))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("delivery order = %v", order)
	}
}

func TestEmitter_UnsubscribeStopsFutureEventsOnly(t *testing.T) {
	e := NewEmitter("p1")

	var count int
	unsub := e.Subscribe(func(Event) { count++ })

	e.Emit(NewPlanStartedEvent("p1", "goal", 1))
	unsub()
	e.Emit(NewPlanCompletedEvent("p1", 1, 1, 10))

	if count != 1 {
		t.Errorf("handler ran %d times, want 1", count)
	}
	// History is not retroactively trimmed.
	if got := len(e.History()); got != 2 {
		t.Errorf("history has %d events, want 2", got)
	}
}

func TestEmitter_UnsubscribeDuringEmissionDoesNotAffectCurrentPass(t *testing.T) {
	e := NewEmitter("p1")

	var unsubSecond func()
	var secondRan bool
	e.Subscribe(func(Event) { unsubSecond() })
	unsubSecond = e.Subscribe(func(Event) { secondRan = true })

	e.Emit(NewPlanStartedEvent("p1", "goal", 1))

	if !secondRan {
		t.Error("subscriber unsubscribed mid-emission should still receive the current event")
	}

	secondRan = false
	e.Emit(NewPlanCompletedEvent("p1", 1, 1, 10))
	if secondRan {
		t.Error("unsubscribed handler received a later event")
	}
}

func TestEmitter_AsyncSubscribersJoinedBeforeEmitReturns(t *testing.T) {
	e := NewEmitter("p1")

	var done atomic.Int32
	var mu sync.Mutex
	for i := 0; i < 4; i++ {
		e.SubscribeAsync(func(Event) {
			mu.Lock()
			defer mu.Unlock()
			done.Add(1)
		})
	}

	e.Emit(NewStepStartingEvent("p1", 0, "create_task", ""))

	if got := done.Load(); got != 4 {
		t.Errorf("Emit returned before async subscribers finished: %d/4", got)
	}
}

func TestEmitter_HistoryAndLastEvent(t *testing.T) {
	e := NewEmitter("p1")
	e.Emit(NewStepStartingEvent("p1", 0, "t", ""))
	e.Emit(NewStepCompletedEvent("p1", 0, "t", 5))
	e.Emit(NewStepStartingEvent("p1", 1, "t2", ""))

	last, ok := e.LastEvent(StepStarting)
	if !ok || last.StepIndex != 1 {
		t.Errorf("LastEvent = %+v, ok=%v", last, ok)
	}
	if _, ok := e.LastEvent(PlanFailed); ok {
		t.Error("LastEvent for unemitted type should report absence")
	}
	if got := len(e.History()); got != 3 {
		t.Errorf("history length = %d", got)
	}
}

func TestEventConstructors_SetVariantFields(t *testing.T) {
	ev := NewStepFailedEvent("p1", 2, "send_email", "notify", "smtp timeout", true, 120)
	if ev.Type != StepFailed || ev.StepIndex != 2 || ev.Retryable == nil || !*ev.Retryable {
		t.Errorf("step_failed event malformed: %+v", ev)
	}
	if ev.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	cancelled := NewPlanCancelledEvent("p1", "user-7")
	if cancelled.CancelledBy != "user-7" || cancelled.Retryable != nil {
		t.Errorf("plan_cancelled event malformed: %+v", cancelled)
	}
}
