// ABOUTME: Observer bus delivers lifecycle notifications synchronously to subscribers
// ABOUTME: Subscribers may return an override value that callers use as a veto signal

package observer

import (
	"reflect"
	"sync"

	"filter-assets/core/domain"
)

// Observer receives notifications. A non-nil return value is an override.
type Observer interface {
	Observe(topic domain.Topic, payload any) any
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(topic domain.Topic, payload any) any

// Observe implements Observer
func (f ObserverFunc) Observe(topic domain.Topic, payload any) any {
	return f(topic, payload)
}

// Bus is a synchronous publish/subscribe hub
type Bus struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe adds o unless the same observer is already subscribed
func (b *Bus) Subscribe(o Observer) {
	if o == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.observers {
		if sameObserver(existing, o) {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// Unsubscribe removes every occurrence of o
func (b *Bus) Unsubscribe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.observers[:0]
	for _, existing := range b.observers {
		if !sameObserver(existing, o) {
			kept = append(kept, existing)
		}
	}
	clear(b.observers[len(kept):])
	b.observers = kept
}

// Len returns the number of subscribed observers
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Notify calls every observer in subscription order and returns the last
// non-nil value returned. Observers may subscribe or unsubscribe while being
// notified; the change applies to the next notification.
func (b *Bus) Notify(topic domain.Topic, payload any) any {
	b.mu.RLock()
	snapshot := make([]Observer, len(b.observers))
	copy(snapshot, b.observers)
	b.mu.RUnlock()

	var result any
	for _, o := range snapshot {
		if r := o.Observe(topic, payload); r != nil {
			result = r
		}
	}
	return result
}

// Truthy interprets an override value: nil, false, zero numbers and empty
// strings are false, anything else is true
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return !rv.IsZero()
	}
	return true
}

// sameObserver compares observers by identity. Function values are not
// comparable in Go, so they are compared by code pointer. Two closures built
// from the same literal share a code pointer and count as the same observer;
// callers that need several such closures subscribed should wrap each in a
// pointer type.
func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Kind() == reflect.Func {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	if !ta.Comparable() {
		return false
	}
	return a == b
}
