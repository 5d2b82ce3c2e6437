package observer

import (
	"testing"
	"time"

	"filter-assets/core/domain"
)

type recorder struct {
	name   string
	calls  *[]string
	result any
}

func (r *recorder) Observe(topic domain.Topic, payload any) any {
	*r.calls = append(*r.calls, r.name+":"+string(topic))
	return r.result
}

func TestBus_NotifyOrderAndLastWins(t *testing.T) {
	var calls []string
	bus := NewBus()
	bus.Subscribe(&recorder{name: "a", calls: &calls, result: "first"})
	bus.Subscribe(&recorder{name: "b", calls: &calls, result: nil})
	bus.Subscribe(&recorder{name: "c", calls: &calls, result: "last"})

	got := bus.Notify(domain.TopicBeforeUpdate, domain.BeforeUpdate{Key: "x"})

	if got != "last" {
		t.Errorf("Notify() = %v, want last", got)
	}
	want := []string{"a:before-update", "b:before-update", "c:before-update"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %v, want %v", i, calls[i], want[i])
		}
	}
}

func TestBus_NilResultsDoNotOverride(t *testing.T) {
	var calls []string
	bus := NewBus()
	bus.Subscribe(&recorder{name: "a", calls: &calls, result: true})
	bus.Subscribe(&recorder{name: "b", calls: &calls, result: nil})

	if got := bus.Notify(domain.TopicBeforeUpdate, nil); got != true {
		t.Errorf("Notify() = %v, want true", got)
	}
}

func TestBus_SubscribeDedupsByIdentity(t *testing.T) {
	var calls []string
	r := &recorder{name: "a", calls: &calls}
	bus := NewBus()
	bus.Subscribe(r)
	bus.Subscribe(r)

	fn := ObserverFunc(func(domain.Topic, any) any { return nil })
	bus.Subscribe(fn)
	bus.Subscribe(fn)

	if bus.Len() != 2 {
		t.Errorf("Len() = %d, want 2", bus.Len())
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	var calls []string
	a := &recorder{name: "a", calls: &calls}
	b := &recorder{name: "b", calls: &calls}
	bus := NewBus()
	bus.Subscribe(a)
	bus.Subscribe(b)
	bus.Unsubscribe(a)

	bus.Notify(domain.TopicCycleStarted, nil)

	if len(calls) != 1 || calls[0] != "b:cycle-started" {
		t.Errorf("calls = %v, want only b", calls)
	}
}

func TestBus_SubscribeDuringNotify(t *testing.T) {
	bus := NewBus()
	var late int
	bus.Subscribe(ObserverFunc(func(domain.Topic, any) any {
		bus.Subscribe(ObserverFunc(func(domain.Topic, any) any {
			late++
			return nil
		}))
		return nil
	}))

	bus.Notify(domain.TopicCycleStarted, nil)
	if late != 0 {
		t.Errorf("observer added during Notify was called %d times", late)
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"skip", true},
		{0, false},
		{1, true},
		{int32(0), false},
		{uint(0), false},
		{uint8(3), true},
		{float32(0), false},
		{0.5, true},
		{time.Duration(0), false},
		{time.Second, true},
		{struct{}{}, true},
	}

	for _, tt := range tests {
		if got := Truthy(tt.v); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
